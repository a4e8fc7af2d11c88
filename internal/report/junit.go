package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a failed check.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a check as not counted.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a Document to JUnit XML format.
//
// JUnit has no notion of inconclusive or informational results:
// INCONCLUSIVE is reported as skipped with the reason, INFORMATIONAL as a
// passing test case whose reason goes to system-out.
func ConvertToJUnit(doc Document) *JUnitTestSuites {
	durationSec := float64(doc.DurationMS) / 1000.0
	c := doc.Counts
	skipped := c.Skipped + c.Inconclusive

	suite := JUnitTestSuite{
		Name:      doc.Suite,
		Tests:     c.Total,
		Failures:  c.Failed,
		Skipped:   skipped,
		Time:      durationSec,
		Timestamp: doc.StartedAt.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "implementation", Value: doc.Implementation},
			{Name: "conformant", Value: strconv.FormatBool(doc.Conformant)},
			{Name: "inconclusive", Value: strconv.Itoa(c.Inconclusive)},
			{Name: "informational", Value: strconv.Itoa(c.Informational)},
		},
	}
	if doc.RunID != "" {
		suite.Properties = append([]JUnitProperty{{Name: "run_id", Value: doc.RunID}}, suite.Properties...)
	}

	for _, e := range doc.Results {
		suite.TestCases = append(suite.TestCases, convertEntry(doc.Suite, e))
	}

	return &JUnitTestSuites{
		Tests:      c.Total,
		Failures:   c.Failed,
		Skipped:    skipped,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertEntry(suite string, e Entry) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      e.ID,
		Classname: suite,
		Time:      float64(e.DurationMS) / 1000.0,
	}

	switch e.Status {
	case outcome.StatusFail:
		tc.Failure = &JUnitFailure{
			Message: firstLine(e.Reason),
			Type:    failureType(e),
			Body:    e.Reason,
		}
	case outcome.StatusSkipped:
		tc.Skipped = &JUnitSkipped{Message: e.Reason}
	case outcome.StatusInconclusive:
		tc.Skipped = &JUnitSkipped{Message: "inconclusive: " + e.Reason}
	case outcome.StatusInformational:
		tc.SystemOut = "informational: " + e.Reason
	}
	return tc
}

func failureType(e Entry) string {
	if e.Rule == "" {
		return "ConformanceFailure"
	}
	return "Rule" + e.Rule
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// WriteJUnit writes doc as JUnit XML.
func WriteJUnit(w io.Writer, doc Document) error {
	data, err := xml.MarshalIndent(ConvertToJUnit(doc), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
