// Package browser holds typed Browser domain commands.
package browser

import (
	"context"

	cdpbrowser "github.com/chromedp/cdproto/browser"

	"github.com/localrivet/gocdp/client"
)

// GetVersionParams are the parameters of Browser.getVersion.
type GetVersionParams struct{}

// GetVersionReturns describes the browser build.
type GetVersionReturns struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JsVersion       string `json:"jsVersion"`
}

// GetVersion returns version information.
func GetVersion() *GetVersionParams {
	return &GetVersionParams{}
}

// Method returns "Browser.getVersion".
func (GetVersionParams) Method() string { return cdpbrowser.CommandGetVersion }

// Response ties GetVersionParams to its result type.
func (GetVersionParams) Response() GetVersionReturns { return GetVersionReturns{} }

// Do executes Browser.getVersion.
func (p *GetVersionParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) (*GetVersionReturns, error) {
	res, err := client.Send[GetVersionReturns](ctx, c, *p, opts...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CloseParams are the parameters of Browser.close.
type CloseParams struct{}

// Close closes the browser gracefully.
func Close() *CloseParams {
	return &CloseParams{}
}

// Method returns "Browser.close".
func (CloseParams) Method() string { return cdpbrowser.CommandClose }

// Response ties CloseParams to its result type.
func (CloseParams) Response() struct{} { return struct{}{} }

// Do executes Browser.close.
func (p *CloseParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}
