package reporting

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// SignInRequest carries the SignIn parameters.
type SignInRequest struct {
	LoginName   string
	Password    string
	AdminMode   bool
	Version     string
	Workstation string
	Locale      string
	TimeZoneID  string
}

// SignInResult is the account the server signed in.
type SignInResult struct {
	AccountID int64
	FirstName string
	LastName  string
}

// TimeRange is a custom BrowseOrders time window.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// BrowseRequest selects orders by last-modified time.
type BrowseRequest struct {
	SiteID         int
	Time           TimeRange
	OrderStatus    string
	TransferStatus string
	ReportStatus   string
	Sort           string
	PageSize       int
	PageNumber     int
}

// Order is one BrowseOrders row.
type Order struct {
	ReportID         int64     `xml:"ReportID"`
	AccessionNumber  string    `xml:"AccessionNumber"`
	LastModifiedDate Timestamp `xml:"LastModifiedDate"`
}

// Event is one entry of a report's audit trail.
type Event struct {
	Type           string    `xml:"Type"`
	EventTime      Timestamp `xml:"EventTime"`
	Workstation    string    `xml:"Workstation"`
	AdditionalInfo string    `xml:"AdditionalInfo"`
	Account        struct {
		ID   int64  `xml:"ID"`
		Name string `xml:"Name"`
	} `xml:"Account"`
}

// Timestamp decodes an xs:dateTime. Values without a zone are read in
// the local time zone, which is how the server reports them.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for i, layout := range timestampLayouts {
		var (
			v   time.Time
			err error
		)
		if i == 0 {
			v, err = time.Parse(layout, s)
		} else {
			v, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid xs:dateTime %q", s)
}

// wireTime formats t the way the server expects query bounds: local
// offset, millisecond precision.
func wireTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

// SignIn opens a session. The session header comes back in the response
// envelope and is picked up by interceptors.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	body := struct {
		XMLName     xml.Name `xml:"SignIn"`
		NS          string   `xml:"xmlns,attr"`
		LoginName   string   `xml:"loginName"`
		Password    string   `xml:"password"`
		AdminMode   bool     `xml:"adminMode"`
		Version     string   `xml:"version"`
		Workstation string   `xml:"workstation"`
		Locale      string   `xml:"locale"`
		TimeZoneID  string   `xml:"timeZoneId"`
	}{
		NS:          c.namespace,
		LoginName:   req.LoginName,
		Password:    req.Password,
		AdminMode:   req.AdminMode,
		Version:     req.Version,
		Workstation: req.Workstation,
		Locale:      req.Locale,
		TimeZoneID:  req.TimeZoneID,
	}
	var out struct {
		Result *struct {
			AccountID int64 `xml:"AccountID"`
			Person    struct {
				FirstName string `xml:"FirstName"`
				LastName  string `xml:"LastName"`
			} `xml:"Person"`
		} `xml:"SignInResult"`
	}
	if err := c.call(ctx, sessionEndpoint, "SignIn", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, fmt.Errorf("SignIn: response has no SignInResult")
	}
	return &SignInResult{
		AccountID: out.Result.AccountID,
		FirstName: out.Result.Person.FirstName,
		LastName:  out.Result.Person.LastName,
	}, nil
}

// SignOut closes the session identified by header.
func (c *Client) SignOut(ctx context.Context, header []byte) (bool, error) {
	body := struct {
		XMLName xml.Name `xml:"SignOut"`
		NS      string   `xml:"xmlns,attr"`
	}{NS: c.namespace}
	var out struct {
		Result bool `xml:"SignOutResult"`
	}
	if err := c.call(ctx, sessionEndpoint, "SignOut", [][]byte{header}, body, &out); err != nil {
		return false, err
	}
	return out.Result, nil
}

// BrowseOrders lists orders matching req.
func (c *Client) BrowseOrders(ctx context.Context, header []byte, req BrowseRequest) ([]Order, error) {
	type timeSpec struct {
		Period string `xml:"Period"`
		From   string `xml:"From"`
		To     string `xml:"To"`
	}
	body := struct {
		XMLName        xml.Name `xml:"BrowseOrders"`
		NS             string   `xml:"xmlns,attr"`
		SiteID         int      `xml:"siteID"`
		Time           timeSpec `xml:"time"`
		OrderStatus    string   `xml:"orderStatus"`
		TransferStatus string   `xml:"transferStatus"`
		ReportStatus   string   `xml:"reportStatus"`
		Sort           string   `xml:"sort"`
		PageSize       int      `xml:"pageSize"`
		PageNumber     int      `xml:"pageNumber"`
	}{
		NS:     c.namespace,
		SiteID: req.SiteID,
		Time: timeSpec{
			Period: "Custom",
			From:   wireTime(req.Time.From),
			To:     wireTime(req.Time.To),
		},
		OrderStatus:    req.OrderStatus,
		TransferStatus: req.TransferStatus,
		ReportStatus:   req.ReportStatus,
		Sort:           req.Sort,
		PageSize:       req.PageSize,
		PageNumber:     req.PageNumber,
	}
	var out struct {
		Result struct {
			Items []Order `xml:",any"`
		} `xml:"BrowseOrdersResult"`
	}
	if err := c.call(ctx, explorerEndpoint, "BrowseOrders", [][]byte{header}, body, &out); err != nil {
		return nil, err
	}
	return out.Result.Items, nil
}

// GetReportEvents returns the audit trail of one report, excluding view
// events and content blobs. A report with no events yields nil.
func (c *Client) GetReportEvents(ctx context.Context, header []byte, reportID int64) ([]Event, error) {
	body := struct {
		XMLName           xml.Name `xml:"GetReportEvents"`
		NS                string   `xml:"xmlns,attr"`
		ReportID          int64    `xml:"reportID"`
		EventsWithContent bool     `xml:"eventsWithContent"`
		ExcludeViewEvents bool     `xml:"excludeViewEvents"`
		FetchBlob         bool     `xml:"fetchBlob"`
	}{
		NS:                c.namespace,
		ReportID:          reportID,
		EventsWithContent: true,
		ExcludeViewEvents: true,
		FetchBlob:         false,
	}
	var out struct {
		Result struct {
			Items []Event `xml:",any"`
		} `xml:"GetReportEventsResult"`
	}
	if err := c.call(ctx, reportEndpoint, "GetReportEvents", [][]byte{header}, body, &out); err != nil {
		return nil, err
	}
	return out.Result.Items, nil
}
