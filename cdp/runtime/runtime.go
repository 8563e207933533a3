// Package runtime holds typed Runtime domain commands and events.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto"
	cdpruntime "github.com/chromedp/cdproto/runtime"

	"github.com/localrivet/gocdp/client"
)

// RemoteObjectID identifies an object held by the page.
type RemoteObjectID = cdpruntime.RemoteObjectID

// ExecutionContextID identifies a JavaScript execution context.
type ExecutionContextID = cdpruntime.ExecutionContextID

// RemoteObject mirrors a JavaScript value. Value is only set for values
// returned by value.
type RemoteObject struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	ClassName   string          `json:"className,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
	ObjectID    RemoteObjectID  `json:"objectId,omitempty"`
}

// ExceptionDetails describes an exception thrown during evaluation.
type ExceptionDetails struct {
	ExceptionID  int64         `json:"exceptionId"`
	Text         string        `json:"text"`
	LineNumber   int64         `json:"lineNumber"`
	ColumnNumber int64         `json:"columnNumber"`
	URL          string        `json:"url,omitempty"`
	Exception    *RemoteObject `json:"exception,omitempty"`
}

// Error implements the error interface.
func (e *ExceptionDetails) Error() string {
	desc := e.Text
	if e.Exception != nil && e.Exception.Description != "" {
		desc = e.Exception.Description
	}
	return fmt.Sprintf("exception %q (%d:%d)", desc, e.LineNumber, e.ColumnNumber)
}

// EnableParams are the parameters of Runtime.enable.
type EnableParams struct{}

// Enable turns on Runtime domain notifications.
func Enable() *EnableParams {
	return &EnableParams{}
}

// Method returns "Runtime.enable".
func (EnableParams) Method() string { return cdpruntime.CommandEnable }

// Response ties EnableParams to its result type.
func (EnableParams) Response() struct{} { return struct{}{} }

// Do executes Runtime.enable.
func (p *EnableParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) error {
	_, err := client.Send[struct{}](ctx, c, *p, opts...)
	return err
}

// EvaluateParams are the parameters of Runtime.evaluate.
type EvaluateParams struct {
	Expression    string             `json:"expression"`
	ReturnByValue bool               `json:"returnByValue,omitempty"`
	AwaitPromise  bool               `json:"awaitPromise,omitempty"`
	ContextID     ExecutionContextID `json:"contextId,omitempty"`
}

// EvaluateReturns is the result of Runtime.evaluate.
type EvaluateReturns struct {
	Result           *RemoteObject     `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

// Evaluate evaluates expression in the global object.
func Evaluate(expression string) *EvaluateParams {
	return &EvaluateParams{Expression: expression}
}

// WithReturnByValue requests the result serialized by value.
func (p EvaluateParams) WithReturnByValue(returnByValue bool) *EvaluateParams {
	p.ReturnByValue = returnByValue
	return &p
}

// WithAwaitPromise waits for a returned promise to settle.
func (p EvaluateParams) WithAwaitPromise(awaitPromise bool) *EvaluateParams {
	p.AwaitPromise = awaitPromise
	return &p
}

// Method returns "Runtime.evaluate".
func (EvaluateParams) Method() string { return cdpruntime.CommandEvaluate }

// Response ties EvaluateParams to its result type.
func (EvaluateParams) Response() EvaluateReturns { return EvaluateReturns{} }

// Do executes Runtime.evaluate. A thrown exception is returned as
// *ExceptionDetails.
func (p *EvaluateParams) Do(ctx context.Context, c *client.Client, opts ...client.SendOption) (*RemoteObject, error) {
	res, err := client.Send[EvaluateReturns](ctx, c, *p, opts...)
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		return res.Result, res.ExceptionDetails
	}
	return res.Result, nil
}

// EventConsoleAPICalled is Runtime.consoleAPICalled.
type EventConsoleAPICalled struct {
	Type               string             `json:"type"`
	Args               []*RemoteObject    `json:"args"`
	ExecutionContextID ExecutionContextID `json:"executionContextId"`
	Timestamp          float64            `json:"timestamp"`
}

// EventName returns the wire event name.
func (EventConsoleAPICalled) EventName() string { return string(cdproto.EventRuntimeConsoleAPICalled) }

// EventExceptionThrown is Runtime.exceptionThrown.
type EventExceptionThrown struct {
	Timestamp        float64           `json:"timestamp"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails"`
}

// EventName returns the wire event name.
func (EventExceptionThrown) EventName() string { return string(cdproto.EventRuntimeExceptionThrown) }
