// =============================================================================
// Statement Ingest - XML Writer Module
// =============================================================================
//
// This module renders an import report as an XML document.
//
// XML STRUCTURE:
//
//   <statement file="bank.csv" run="..." processed_at="...">
//     <extraction>
//       <file_type>csv</file_type>
//       <rows_read>3</rows_read>
//       <columns_found><column>Date</column>...</columns_found>
//       <column_mapping><field name="date">Date</field>...</column_mapping>
//       <rows_dropped><reason name="missing_date">1</reason></rows_dropped>
//     </extraction>
//     <cleaning>
//       <original_count>3</original_count>
//       <date_range start="2024-01-15" end="2024-01-16"/>
//       <total_income>5000.00</total_income>
//     </cleaning>
//     <validation is_valid="true" errors="0" warnings="0"/>
//     <transaction n="1">
//       <transaction_date>2024-01-16</transaction_date>
//       <type>expense</type>
//       <amount>4.50</amount>
//       ...
//     </transaction>
//   </statement>
//
// Empty optional values are written as self-closing elements or omitted.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/statement-ingest/internal/importer"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string

	// RootElement is the name of the document element.
	// Default: "statement"
	RootElement string

	// TransactionIndexAttribute is the attribute name for transaction index.
	// Default: "n"
	TransactionIndexAttribute string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                    "  ",
		IncludeXMLDeclaration:     true,
		XMLVersion:                "1.0",
		Encoding:                  "UTF-8",
		RootElement:               "statement",
		TransactionIndexAttribute: "n",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders a report with the default options.
//
// PARAMETERS:
//   - report: The import report to render.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if generation fails.
func Generate(report *importer.Report) ([]byte, error) {
	return GenerateWithOptions(report, DefaultGenerateOptions())
}

// GenerateWithOptions renders a report with custom options.
func GenerateWithOptions(report *importer.Report, options GenerateOptions) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("failed to generate XML: nil report")
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	root := buildDocument(report, options)
	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the statement element.
func buildDocument(report *importer.Report, options GenerateOptions) XMLElement {
	root := XMLElement{
		XMLName: xml.Name{Local: options.RootElement},
		Attributes: []xml.Attr{
			attr("file", report.FileName),
			attr("run", report.RunID),
		},
	}
	if !report.ProcessedAt.IsZero() {
		root.Attributes = append(root.Attributes, attr("processed_at", report.ProcessedAt.Format(time.RFC3339)))
	}

	root.Children = append(root.Children,
		buildExtractionElement(report.Extraction),
		buildCleaningElement(report.Cleaning),
	)

	if report.Validation != nil {
		validation := XMLElement{
			XMLName: xml.Name{Local: "validation"},
			Attributes: []xml.Attr{
				attr("is_valid", strconv.FormatBool(report.Validation.IsValid)),
				attr("errors", strconv.Itoa(report.Validation.ErrorCount)),
				attr("warnings", strconv.Itoa(report.Validation.WarningCount)),
			},
		}
		for _, finding := range report.Validation.Errors {
			validation.Children = append(validation.Children, XMLElement{
				XMLName: xml.Name{Local: "finding"},
				Attributes: []xml.Attr{
					attr("severity", finding.Severity),
					attr("rule", finding.Rule),
					attr("field", finding.Field),
					attr("index", strconv.Itoa(finding.Index)),
				},
				Value: finding.Message,
			})
		}
		root.Children = append(root.Children, validation)
	}

	for i, tx := range report.Transactions {
		root.Children = append(root.Children, buildTransactionElement(i+1, tx, options))
	}

	return root
}

// buildExtractionElement renders the extraction diagnostics.
func buildExtractionElement(d types.ExtractionDiagnostics) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "extraction"}}

	add := func(name, value string) {
		element.Children = append(element.Children, createSimpleElement(name, value))
	}

	add("file_type", d.FileType)
	add("rows_read", strconv.Itoa(d.RowsRead))
	add("rows_processed", strconv.Itoa(d.RowsProcessed))
	if d.Encoding != "" {
		add("encoding", d.Encoding)
	}
	if d.Sheet != "" {
		add("sheet", d.Sheet)
	}
	if d.PagesRead > 0 {
		add("pages_read", strconv.Itoa(d.PagesRead))
	}
	if d.Warning != "" {
		add("warning", d.Warning)
	}

	columns := XMLElement{XMLName: xml.Name{Local: "columns_found"}}
	for _, column := range d.ColumnsFound {
		columns.Children = append(columns.Children, createSimpleElement("column", column))
	}
	element.Children = append(element.Children, columns)

	// Fields in canonical order rather than map order.
	mapping := XMLElement{XMLName: xml.Name{Local: "column_mapping"}}
	for _, field := range types.Fields {
		column, ok := d.ColumnMapping[string(field)]
		if !ok {
			continue
		}
		mapping.Children = append(mapping.Children, XMLElement{
			XMLName:    xml.Name{Local: "field"},
			Attributes: []xml.Attr{attr("name", string(field))},
			Value:      column,
		})
	}
	element.Children = append(element.Children, mapping)

	if len(d.RowsDropped) > 0 {
		dropped := XMLElement{XMLName: xml.Name{Local: "rows_dropped"}}
		for _, reason := range types.SortedReasons(d.RowsDropped) {
			dropped.Children = append(dropped.Children, XMLElement{
				XMLName:    xml.Name{Local: "reason"},
				Attributes: []xml.Attr{attr("name", reason)},
				Value:      strconv.Itoa(d.RowsDropped[reason]),
			})
		}
		element.Children = append(element.Children, dropped)
	}

	return element
}

// buildCleaningElement renders the cleaning summary.
func buildCleaningElement(s types.CleaningSummary) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: "cleaning"},
		Children: []XMLElement{
			createSimpleElement("original_count", strconv.Itoa(s.OriginalCount)),
			createSimpleElement("cleaned_count", strconv.Itoa(s.CleanedCount)),
			createSimpleElement("duplicates_removed", strconv.Itoa(s.DuplicatesRemoved)),
			createSimpleElement("invalid_removed", strconv.Itoa(s.InvalidRemoved)),
			createSimpleElement("income_count", strconv.Itoa(s.IncomeCount)),
			createSimpleElement("expense_count", strconv.Itoa(s.ExpenseCount)),
			{
				XMLName: xml.Name{Local: "date_range"},
				Attributes: []xml.Attr{
					attr("start", s.DateRange.Start),
					attr("end", s.DateRange.End),
				},
			},
			createSimpleElement("total_income", s.TotalIncome.StringFixed(2)),
			createSimpleElement("total_expenses", s.TotalExpenses.StringFixed(2)),
		},
	}
}

// buildTransactionElement constructs a transaction XML element.
//
// STRUCTURE:
//   <transaction n="1">
//     <transaction_date>2024-01-15</transaction_date>
//     <type>expense</type>
//     <amount>4.50</amount>
//     <description>Coffee Shop</description>
//     <merchant>Coffee Shop</merchant>
//     <suggested_category>Food &amp; Dining</suggested_category>
//     <category_confidence>0.88</category_confidence>
//   </transaction>
func buildTransactionElement(index int, tx importer.CategorizedTransaction, options GenerateOptions) XMLElement {
	element := XMLElement{
		XMLName: xml.Name{Local: "transaction"},
		Attributes: []xml.Attr{
			attr(options.TransactionIndexAttribute, strconv.Itoa(index)),
		},
		Children: []XMLElement{
			createSimpleElement("transaction_date", tx.TransactionDate),
			createSimpleElement("type", string(tx.Type)),
			createSimpleElement("amount", tx.Amount.StringFixed(2)),
			createSimpleElement("description", tx.Description),
			createSimpleElement("merchant", tx.Merchant),
		},
	}

	if tx.SuggestedCategory != "" {
		element.Children = append(element.Children,
			createSimpleElement("suggested_category", tx.SuggestedCategory),
			createSimpleElement("category_confidence", strconv.FormatFloat(tx.CategoryConfidence, 'f', 2, 64)),
		)
	}

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, a := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}

	// Self-closing tag.
	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD returns an XSD schema describing the statement document.
func GenerateXSD() []byte {
	var buffer bytes.Buffer

	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="statement">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="extraction" type="extractionType"/>
        <xs:element name="cleaning" type="cleaningType"/>
        <xs:element name="validation" type="validationType" minOccurs="0"/>
        <xs:element name="transaction" type="transactionType" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="file" type="xs:string" use="required"/>
      <xs:attribute name="run" type="xs:string" use="required"/>
      <xs:attribute name="processed_at" type="xs:dateTime"/>
    </xs:complexType>
  </xs:element>

`)

	writeXSDSequence(&buffer, "extractionType", []xsdElement{
		{name: "file_type", xsdType: "xs:string"},
		{name: "rows_read", xsdType: "xs:nonNegativeInteger"},
		{name: "rows_processed", xsdType: "xs:nonNegativeInteger"},
		{name: "encoding", xsdType: "xs:string", optional: true},
		{name: "sheet", xsdType: "xs:string", optional: true},
		{name: "pages_read", xsdType: "xs:nonNegativeInteger", optional: true},
		{name: "warning", xsdType: "xs:string", optional: true},
		{name: "columns_found", xsdType: "xs:anyType"},
		{name: "column_mapping", xsdType: "xs:anyType"},
		{name: "rows_dropped", xsdType: "xs:anyType", optional: true},
	}, "")

	writeXSDSequence(&buffer, "cleaningType", []xsdElement{
		{name: "original_count", xsdType: "xs:nonNegativeInteger"},
		{name: "cleaned_count", xsdType: "xs:nonNegativeInteger"},
		{name: "duplicates_removed", xsdType: "xs:nonNegativeInteger"},
		{name: "invalid_removed", xsdType: "xs:nonNegativeInteger"},
		{name: "income_count", xsdType: "xs:nonNegativeInteger"},
		{name: "expense_count", xsdType: "xs:nonNegativeInteger"},
		{name: "date_range", xsdType: "xs:anyType"},
		{name: "total_income", xsdType: "xs:decimal"},
		{name: "total_expenses", xsdType: "xs:decimal"},
	}, "")

	buffer.WriteString(`  <xs:complexType name="validationType">
    <xs:sequence>
      <xs:element name="finding" type="xs:anyType" minOccurs="0" maxOccurs="unbounded"/>
    </xs:sequence>
    <xs:attribute name="is_valid" type="xs:boolean" use="required"/>
    <xs:attribute name="errors" type="xs:nonNegativeInteger" use="required"/>
    <xs:attribute name="warnings" type="xs:nonNegativeInteger" use="required"/>
  </xs:complexType>

`)

	writeXSDSequence(&buffer, "transactionType", []xsdElement{
		{name: "transaction_date", xsdType: "xs:date"},
		{name: "type", xsdType: "xs:string"},
		{name: "amount", xsdType: "xs:decimal"},
		{name: "description", xsdType: "xs:string", maxLength: 255},
		{name: "merchant", xsdType: "xs:string", maxLength: 100},
		{name: "suggested_category", xsdType: "xs:string", optional: true},
		{name: "category_confidence", xsdType: "xs:decimal", optional: true},
	}, `    <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
`)

	buffer.WriteString("</xs:schema>\n")

	return buffer.Bytes()
}

type xsdElement struct {
	name      string
	xsdType   string
	optional  bool
	maxLength int
}

// writeXSDSequence writes a named complex type holding a sequence.
func writeXSDSequence(buffer *bytes.Buffer, typeName string, elements []xsdElement, attributes string) {
	buffer.WriteString(fmt.Sprintf("  <xs:complexType name=\"%s\">\n    <xs:sequence>\n", typeName))

	for _, e := range elements {
		minOccurs := "1"
		if e.optional {
			minOccurs = "0"
		}

		if e.maxLength > 0 {
			buffer.WriteString(fmt.Sprintf(`      <xs:element name="%s" minOccurs="%s">
        <xs:simpleType>
          <xs:restriction base="%s">
            <xs:maxLength value="%d"/>
          </xs:restriction>
        </xs:simpleType>
      </xs:element>
`, e.name, minOccurs, e.xsdType, e.maxLength))
			continue
		}

		buffer.WriteString(fmt.Sprintf("      <xs:element name=\"%s\" type=\"%s\" minOccurs=\"%s\"/>\n",
			e.name, e.xsdType, minOccurs))
	}

	buffer.WriteString("    </xs:sequence>\n")
	buffer.WriteString(attributes)
	buffer.WriteString("  </xs:complexType>\n\n")
}
