package reporting

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	soap12Namespace = "http://www.w3.org/2003/05/soap-envelope"
	soap12Content   = "application/soap+xml; charset=utf-8"

	// DefaultNamespace is the service contract namespace of the RAS endpoints.
	DefaultNamespace = "http://tempuri.org/"

	// maxResponseBytes bounds a single response envelope. A full page of
	// 3000 orders stays well under this.
	maxResponseBytes = 64 << 20
)

// Endpoint identifies one RAS service and its WCF contract name.
type Endpoint struct {
	Path     string
	Contract string
}

var (
	sessionEndpoint  = Endpoint{Path: "/RAS/Session.svc", Contract: "ISession"}
	explorerEndpoint = Endpoint{Path: "/RAS/Explorer.svc", Contract: "IExplorer"}
	reportEndpoint   = Endpoint{Path: "/RAS/Report.svc", Contract: "IReport"}
)

// Interceptor inspects every response envelope before it is decoded.
// Returning an error fails the call.
type Interceptor interface {
	InterceptResponse(operation string, envelope []byte) error
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(operation string, envelope []byte) error

// InterceptResponse calls f.
func (f InterceptorFunc) InterceptResponse(operation string, envelope []byte) error {
	return f(operation, envelope)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the scheme and host of the RAS server, e.g. "http://ps360".
	BaseURL string

	// Namespace is the service contract namespace. Empty means DefaultNamespace.
	Namespace string

	// Timeout bounds each HTTP round trip. Zero means no client-side timeout
	// beyond the caller's context.
	Timeout time.Duration

	// HTTPClient overrides the transport. Used by tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client issues SOAP 1.2 calls against the RAS services.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	namespace string
	http      *http.Client
	logger    *slog.Logger

	mu           sync.RWMutex
	interceptors []Interceptor
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		namespace: ns,
		http:      hc,
		logger:    logger.With("component", "reporting"),
	}
}

// Use registers an interceptor. Interceptors run in registration order.
func (c *Client) Use(i Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, i)
}

func (c *Client) action(ep Endpoint, operation string) string {
	return strings.TrimRight(c.namespace, "/") + "/" + ep.Contract + "/" + operation
}

// call marshals body into a SOAP 1.2 envelope, posts it to ep, runs the
// interceptors over the response and decodes the body's first element
// into out. headers are raw XML elements placed verbatim in the SOAP header.
func (c *Client) call(ctx context.Context, ep Endpoint, operation string, headers [][]byte, body any, out any) error {
	payload, err := xml.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", operation, err)
	}

	to := c.baseURL + ep.Path
	action := c.action(ep, operation)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<s:Envelope xmlns:s="` + soap12Namespace + `" xmlns:a="http://www.w3.org/2005/08/addressing">`)
	buf.WriteString(`<s:Header>`)
	buf.WriteString(`<a:Action s:mustUnderstand="1">`)
	xml.EscapeText(&buf, []byte(action))
	buf.WriteString(`</a:Action><a:To s:mustUnderstand="1">`)
	xml.EscapeText(&buf, []byte(to))
	buf.WriteString(`</a:To>`)
	for _, h := range headers {
		buf.Write(h)
	}
	buf.WriteString(`</s:Header><s:Body>`)
	buf.Write(payload)
	buf.WriteString(`</s:Body></s:Envelope>`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, to, &buf)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", soap12Content+`; action="`+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", operation, err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return &HTTPError{Operation: operation, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("%s: decode envelope: %w", operation, err)
	}
	if env.Body.Fault != nil {
		return env.Body.Fault.toError(operation)
	}
	if resp.StatusCode/100 != 2 {
		return &HTTPError{Operation: operation, StatusCode: resp.StatusCode}
	}

	c.mu.RLock()
	interceptors := c.interceptors
	c.mu.RUnlock()
	for _, i := range interceptors {
		if err := i.InterceptResponse(operation, raw); err != nil {
			return fmt.Errorf("%s: interceptor: %w", operation, err)
		}
	}

	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(env.Body.Content, out); err != nil {
		return fmt.Errorf("%s: decode body: %w", operation, err)
	}
	c.logger.Debug("soap call", "operation", operation, "bytes", len(raw))
	return nil
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"http://www.w3.org/2003/05/soap-envelope Envelope"`
	Body    struct {
		Fault   *soapFault `xml:"http://www.w3.org/2003/05/soap-envelope Fault"`
		Content []byte     `xml:",innerxml"`
	} `xml:"http://www.w3.org/2003/05/soap-envelope Body"`
}

type soapFault struct {
	Code struct {
		Value   string `xml:"Value"`
		Subcode struct {
			Value string `xml:"Value"`
		} `xml:"Subcode"`
	} `xml:"Code"`
	Reason struct {
		Text []string `xml:"Text"`
	} `xml:"Reason"`
}

func (f *soapFault) toError(operation string) *Fault {
	code := f.Code.Value
	if f.Code.Subcode.Value != "" {
		code += "/" + f.Code.Subcode.Value
	}
	return &Fault{
		Operation: operation,
		Code:      code,
		Reason:    strings.Join(f.Reason.Text, "; "),
	}
}

// extractHeader returns the first SOAP header child whose local name is
// local, or nil if the envelope has none. The element is re-encoded with
// its namespaces resolved, so it stays well formed when sent without the
// ancestors that declared them.
func extractHeader(envelope []byte, local string) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(envelope))
	inHeader := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == soap12Namespace {
				switch t.Name.Local {
				case "Header":
					inHeader = true
					continue
				case "Body":
					return nil, nil
				}
			}
			if !inHeader {
				continue
			}
			if t.Name.Local == local {
				return reencode(dec, t)
			}
			if err := dec.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if inHeader && t.Name.Space == soap12Namespace && t.Name.Local == "Header" {
				return nil, nil
			}
		}
	}
}

// reencode writes start and everything up to its matching end element.
// Namespace declarations are dropped; the encoder declares what each
// resolved name needs.
func reencode(dec *xml.Decoder, start xml.StartElement) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	depth := 0
	tok := xml.Token(start)
	for {
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			attrs := t.Attr[:0:0]
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				attrs = append(attrs, a)
			}
			t.Attr = attrs
			if err := enc.EncodeToken(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			depth--
			if err := enc.EncodeToken(t); err != nil {
				return nil, err
			}
			if depth == 0 {
				if err := enc.Flush(); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			}
		case xml.CharData, xml.Comment:
			if err := enc.EncodeToken(t); err != nil {
				return nil, err
			}
		}

		var err error
		if tok, err = dec.Token(); err != nil {
			return nil, fmt.Errorf("read %s header: %w", start.Name.Local, err)
		}
	}
}
