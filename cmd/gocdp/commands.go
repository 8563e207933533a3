package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/localrivet/gocdp/cdp/target"
	"github.com/localrivet/gocdp/client"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the browser's /json/version document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := client.BrowserVersion(cmd.Context(), http.DefaultClient, a.cfg.Host)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "send <Domain.method> [params-json]",
		Short: "Send one command and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := client.RawCommand{Name: args[0]}
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("params are not valid JSON: %s", args[1])
				}
				raw.Params = json.RawMessage(args[1])
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			var opts []client.SendOption
			if sessionID != "" {
				opts = append(opts, client.WithSession(sessionID))
			}
			result, err := client.Send[json.RawMessage](cmd.Context(), c, raw, opts...)
			if err != nil {
				var protoErr *client.ProtocolError
				if errors.As(err, &protoErr) {
					return fmt.Errorf("%s failed with code %d: %s", raw.Name, protoErr.Code, protoErr.Message)
				}
				return err
			}
			if len(result) == 0 {
				result = json.RawMessage(`{}`)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "flattened session id to route the command to")
	return cmd
}

func newListenCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "listen <Domain.event>...",
		Short: "Print notifications until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			var opts []client.SubscribeOption
			if sessionID != "" {
				opts = append(opts, client.ForSession(sessionID))
			}

			type line struct {
				Method string          `json:"method"`
				Params json.RawMessage `json:"params"`
			}
			lines := make(chan line)
			for _, topic := range args {
				sub := client.SubscribeTopic(c, topic, opts...)
				go func(topic string) {
					for params := range sub.Events(ctx) {
						select {
						case lines <- line{Method: topic, Params: params}:
						case <-ctx.Done():
							return
						}
					}
				}(topic)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				select {
				case l := <-lines:
					if err := enc.Encode(l); err != nil {
						return err
					}
				case <-ctx.Done():
					return nil
				case <-c.Done():
					return c.Err()
				}
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "only print notifications from this session")
	return cmd
}

func newNewTargetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new-target <url>",
		Short: "Open a new page and print its target id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := target.CreateTarget(args[0]).Do(cmd.Context(), c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
