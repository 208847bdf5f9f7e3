package chat

import (
	"encoding/xml"
	"strings"
)

// Payload namespaces the viewer attaches to chat messages. A message
// carrying one of these is echoed back instead of being read as a command.
var PayloadNamespaces = []xml.Name{
	{Space: "com.intelerad.viewer.im.extensions.orderContainer2", Local: "orderContainer"},
	{Space: "com.intelerad.viewer.im.extensions.orderContainer", Local: "orderContainer"},
	{Space: "com.intelerad.viewer.im.extensions.phoneRequestAction", Local: "phoneRequestAction"},
}

// Element is an extension element of a message, kept verbatim.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	InnerXML string
}

// Message is a message stanza.
type Message struct {
	ID       string
	From     string
	To       string
	Type     string
	Body     string
	Elements []Element
}

// Presence is a presence stanza.
type Presence struct {
	From string
	Type string
	Show string
}

// RosterItem is one contact from a roster result.
type RosterItem struct {
	JID  string
	Name string
}

// Roster is a roster result.
type Roster struct {
	Items []RosterItem
}

// Payload returns the first recognised payload element, checking the
// namespaces in PayloadNamespaces order.
func (m Message) Payload() (Element, bool) {
	for _, want := range PayloadNamespaces {
		for _, el := range m.Elements {
			if el.Name == want {
				return el, true
			}
		}
	}
	return Element{}, false
}

// XML renders m as a jabber:client message stanza.
func (m Message) XML() string {
	var b strings.Builder
	b.WriteString("<message")
	writeAttr(&b, "to", m.To)
	writeAttr(&b, "type", m.Type)
	writeAttr(&b, "id", m.ID)
	b.WriteString("><body>")
	escape(&b, m.Body)
	b.WriteString("</body>")
	for _, el := range m.Elements {
		el.writeTo(&b)
	}
	b.WriteString("</message>")
	return b.String()
}

// writeTo renders the element with its namespace as the default xmlns.
// Namespace declarations and prefixed attributes of the original are
// dropped; the inner XML is copied as received.
func (el Element) writeTo(b *strings.Builder) {
	b.WriteString("<" + el.Name.Local)
	writeAttr(b, "xmlns", el.Name.Space)
	for _, a := range el.Attrs {
		if a.Name.Space != "" || a.Name.Local == "xmlns" {
			continue
		}
		writeAttr(b, a.Name.Local, a.Value)
	}
	if el.InnerXML == "" {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
	b.WriteString(el.InnerXML)
	b.WriteString("</" + el.Name.Local + ">")
}

func writeAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(" " + name + `="`)
	escape(b, value)
	b.WriteString(`"`)
}

func escape(b *strings.Builder, s string) {
	_ = xml.EscapeText(b, []byte(s))
}
