// Package target holds typed Target domain commands and events.
package target

import (
	"context"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	cdptarget "github.com/chromedp/cdproto/target"

	"github.com/localrivet/gocdp/client"
)

// ID identifies a target.
type ID = cdptarget.ID

// SessionID identifies a flattened session attached to a target.
type SessionID = cdptarget.SessionID

// Info describes a target.
type Info struct {
	TargetID         ID                   `json:"targetId"`
	Type             string               `json:"type"`
	Title            string               `json:"title"`
	URL              string               `json:"url"`
	Attached         bool                 `json:"attached"`
	OpenerID         ID                   `json:"openerId,omitempty"`
	BrowserContextID cdp.BrowserContextID `json:"browserContextId,omitempty"`
}

// CreateTargetParams creates a new page.
type CreateTargetParams struct {
	URL        string `json:"url"`
	Width      int64  `json:"width,omitempty"`
	Height     int64  `json:"height,omitempty"`
	NewWindow  bool   `json:"newWindow,omitempty"`
	Background bool   `json:"background,omitempty"`
}

// CreateTargetReturns is the result of Target.createTarget.
type CreateTargetReturns struct {
	TargetID ID `json:"targetId"`
}

// CreateTarget creates a new page opened at url.
func CreateTarget(url string) *CreateTargetParams {
	return &CreateTargetParams{URL: url}
}

// WithNewWindow opens the target in a new window.
func (p CreateTargetParams) WithNewWindow(newWindow bool) *CreateTargetParams {
	p.NewWindow = newWindow
	return &p
}

// WithBackground creates the target without bringing it to the front.
func (p CreateTargetParams) WithBackground(background bool) *CreateTargetParams {
	p.Background = background
	return &p
}

// Method returns "Target.createTarget".
func (CreateTargetParams) Method() string { return cdptarget.CommandCreateTarget }

// Response ties CreateTargetParams to its result type.
func (CreateTargetParams) Response() CreateTargetReturns { return CreateTargetReturns{} }

// Do executes Target.createTarget.
func (p *CreateTargetParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) (ID, error) {
	res, err := client.Send[CreateTargetReturns](ctx, c, *p, opts...)
	if err != nil {
		return "", err
	}
	return res.TargetID, nil
}

// AttachToTargetParams attaches to a target. Flatten routes the session over
// the browser connection using sessionId.
type AttachToTargetParams struct {
	TargetID ID   `json:"targetId"`
	Flatten  bool `json:"flatten,omitempty"`
}

// AttachToTargetReturns is the result of Target.attachToTarget.
type AttachToTargetReturns struct {
	SessionID SessionID `json:"sessionId"`
}

// AttachToTarget attaches to targetID in flattened mode.
func AttachToTarget(targetID ID) *AttachToTargetParams {
	return &AttachToTargetParams{TargetID: targetID, Flatten: true}
}

// Method returns "Target.attachToTarget".
func (AttachToTargetParams) Method() string { return cdptarget.CommandAttachToTarget }

// Response ties AttachToTargetParams to its result type.
func (AttachToTargetParams) Response() AttachToTargetReturns { return AttachToTargetReturns{} }

// Do executes Target.attachToTarget.
func (p *AttachToTargetParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) (SessionID, error) {
	res, err := client.Send[AttachToTargetReturns](ctx, c, *p, opts...)
	if err != nil {
		return "", err
	}
	return res.SessionID, nil
}

// DetachFromTargetParams are the parameters of Target.detachFromTarget.
type DetachFromTargetParams struct {
	SessionID SessionID `json:"sessionId"`
}

// DetachFromTarget detaches a session.
func DetachFromTarget(sessionID SessionID) *DetachFromTargetParams {
	return &DetachFromTargetParams{SessionID: sessionID}
}

// Method returns "Target.detachFromTarget".
func (DetachFromTargetParams) Method() string { return cdptarget.CommandDetachFromTarget }

// Response ties DetachFromTargetParams to its result type.
func (DetachFromTargetParams) Response() struct{} { return struct{}{} }

// Do executes Target.detachFromTarget.
func (p *DetachFromTargetParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}

// CloseTargetParams are the parameters of Target.closeTarget.
type CloseTargetParams struct {
	TargetID ID `json:"targetId"`
}

// CloseTargetReturns is the result of Target.closeTarget.
type CloseTargetReturns struct {
	Success bool `json:"success"`
}

// CloseTarget closes targetID.
func CloseTarget(targetID ID) *CloseTargetParams {
	return &CloseTargetParams{TargetID: targetID}
}

// Method returns "Target.closeTarget".
func (CloseTargetParams) Method() string { return cdptarget.CommandCloseTarget }

// Response ties CloseTargetParams to its result type.
func (CloseTargetParams) Response() CloseTargetReturns { return CloseTargetReturns{} }

// Do executes Target.closeTarget. Recent browsers reply with an empty
// result, which is treated as success.
func (p *CloseTargetParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[CloseTargetReturns](ctx, c, *p, opts...)
	return err
}

// GetTargetsParams are the parameters of Target.getTargets.
type GetTargetsParams struct{}

// GetTargetsReturns is the result of Target.getTargets.
type GetTargetsReturns struct {
	TargetInfos []*Info `json:"targetInfos"`
}

// GetTargets lists the available targets.
func GetTargets() *GetTargetsParams {
	return &GetTargetsParams{}
}

// Method returns "Target.getTargets".
func (GetTargetsParams) Method() string { return cdptarget.CommandGetTargets }

// Response ties GetTargetsParams to its result type.
func (GetTargetsParams) Response() GetTargetsReturns { return GetTargetsReturns{} }

// Do executes Target.getTargets.
func (p *GetTargetsParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) ([]*Info, error) {
	res, err := client.Send[GetTargetsReturns](ctx, c, *p, opts...)
	if err != nil {
		return nil, err
	}
	return res.TargetInfos, nil
}

// SetDiscoverTargetsParams are the parameters of Target.setDiscoverTargets.
type SetDiscoverTargetsParams struct {
	Discover bool `json:"discover"`
}

// SetDiscoverTargets turns targetCreated/targetDestroyed notifications on or
// off.
func SetDiscoverTargets(discover bool) *SetDiscoverTargetsParams {
	return &SetDiscoverTargetsParams{Discover: discover}
}

// Method returns "Target.setDiscoverTargets".
func (SetDiscoverTargetsParams) Method() string { return cdptarget.CommandSetDiscoverTargets }

// Response ties SetDiscoverTargetsParams to its result type.
func (SetDiscoverTargetsParams) Response() struct{} { return struct{}{} }

// Do executes Target.setDiscoverTargets.
func (p *SetDiscoverTargetsParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}

// EventTargetCreated is Target.targetCreated.
type EventTargetCreated struct {
	TargetInfo *Info `json:"targetInfo"`
}

// EventName returns the wire event name.
func (EventTargetCreated) EventName() string { return string(cdproto.EventTargetTargetCreated) }

// EventTargetDestroyed is Target.targetDestroyed.
type EventTargetDestroyed struct {
	TargetID ID `json:"targetId"`
}

// EventName returns the wire event name.
func (EventTargetDestroyed) EventName() string { return string(cdproto.EventTargetTargetDestroyed) }

// EventAttachedToTarget is Target.attachedToTarget.
type EventAttachedToTarget struct {
	SessionID          SessionID `json:"sessionId"`
	TargetInfo         *Info     `json:"targetInfo"`
	WaitingForDebugger bool      `json:"waitingForDebugger"`
}

// EventName returns the wire event name.
func (EventAttachedToTarget) EventName() string { return string(cdproto.EventTargetAttachedToTarget) }

// EventDetachedFromTarget is Target.detachedFromTarget.
type EventDetachedFromTarget struct {
	SessionID SessionID `json:"sessionId"`
	TargetID  ID        `json:"targetId,omitempty"`
}

// EventName returns the wire event name.
func (EventDetachedFromTarget) EventName() string {
	return string(cdproto.EventTargetDetachedFromTarget)
}
