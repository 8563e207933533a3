// Package page holds typed Page domain commands and events.
package page

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"

	"github.com/localrivet/gocdp/client"
)

// FrameID identifies a frame.
type FrameID = cdp.FrameID

// LoaderID identifies a navigation loader.
type LoaderID = cdp.LoaderID

// Frame is the frame description carried by navigation events.
type Frame struct {
	ID       FrameID  `json:"id"`
	ParentID FrameID  `json:"parentId,omitempty"`
	LoaderID LoaderID `json:"loaderId"`
	Name     string   `json:"name,omitempty"`
	URL      string   `json:"url"`
	MimeType string   `json:"mimeType"`
}

// EnableParams are the parameters of Page.enable.
type EnableParams struct{}

// Enable turns on Page domain notifications.
func Enable() *EnableParams {
	return &EnableParams{}
}

// Method returns "Page.enable".
func (EnableParams) Method() string { return cdppage.CommandEnable }

// Response ties EnableParams to its result type.
func (EnableParams) Response() struct{} { return struct{}{} }

// Do executes Page.enable.
func (p *EnableParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}

// NavigateParams are the parameters of Page.navigate.
type NavigateParams struct {
	URL      string `json:"url"`
	Referrer string `json:"referrer,omitempty"`
}

// NavigateReturns is the result of Page.navigate.
type NavigateReturns struct {
	FrameID   FrameID  `json:"frameId"`
	LoaderID  LoaderID `json:"loaderId,omitempty"`
	ErrorText string   `json:"errorText,omitempty"`
}

// Navigate loads url in the target's main frame.
func Navigate(url string) *NavigateParams {
	return &NavigateParams{URL: url}
}

// WithReferrer sets the referrer URL.
func (p NavigateParams) WithReferrer(referrer string) *NavigateParams {
	p.Referrer = referrer
	return &p
}

// Method returns "Page.navigate".
func (NavigateParams) Method() string { return cdppage.CommandNavigate }

// Response ties NavigateParams to its result type.
func (NavigateParams) Response() NavigateReturns { return NavigateReturns{} }

// Do executes Page.navigate. A navigation the browser reports as failed is
// returned as an error along with the frame id.
func (p *NavigateParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) (FrameID, error) {
	res, err := client.Send[NavigateReturns](ctx, c, *p, opts...)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return res.FrameID, fmt.Errorf("page load error %s", res.ErrorText)
	}
	return res.FrameID, nil
}

// ReloadParams are the parameters of Page.reload.
type ReloadParams struct {
	IgnoreCache bool `json:"ignoreCache,omitempty"`
}

// Reload reloads the page.
func Reload() *ReloadParams {
	return &ReloadParams{}
}

// WithIgnoreCache bypasses the cache when reloading.
func (p ReloadParams) WithIgnoreCache(ignoreCache bool) *ReloadParams {
	p.IgnoreCache = ignoreCache
	return &p
}

// Method returns "Page.reload".
func (ReloadParams) Method() string { return cdppage.CommandReload }

// Response ties ReloadParams to its result type.
func (ReloadParams) Response() struct{} { return struct{}{} }

// Do executes Page.reload.
func (p *ReloadParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}

// EventLoadEventFired is Page.loadEventFired.
type EventLoadEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

// EventName returns the wire event name.
func (EventLoadEventFired) EventName() string { return string(cdproto.EventPageLoadEventFired) }

// EventDOMContentEventFired is Page.domContentEventFired.
type EventDOMContentEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

// EventName returns the wire event name.
func (EventDOMContentEventFired) EventName() string {
	return string(cdproto.EventPageDomContentEventFired)
}

// EventFrameNavigated is Page.frameNavigated.
type EventFrameNavigated struct {
	Frame *Frame `json:"frame"`
	Type  string `json:"type,omitempty"`
}

// EventName returns the wire event name.
func (EventFrameNavigated) EventName() string { return string(cdproto.EventPageFrameNavigated) }
