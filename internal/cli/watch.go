package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/conflictsuite/internal/mq"
)

// NewWatchCmd создаёт команду, печатающую результаты из RabbitMQ по мере поступления.
func NewWatchCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow run and rule results published to RabbitMQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFn()
			out := outputFn()
			ctx := cmd.Context()

			if app.Config.RabbitURL == "" {
				return ErrNoBroker
			}

			conn, err := mq.NewConnection(mq.ConnectionConfig{
				URL:       app.Config.RabbitURL,
				Name:      "conflictsuite-watch",
				OnConnect: mq.DeclareTopology,
				Logger:    app.Logger,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, mq.ConsumerConfig{
				Declare: mq.DeclareWatchQueue,
				Handler: func(_ context.Context, d *mq.Delivery) error {
					return printMessage(out, &d.Message)
				},
				Prefetch: 16,
				Logger:   app.Logger,
			})

			err = consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// printMessage выводит одно сообщение строкой (или JSON-строкой с --json).
func printMessage(out *Output, msg *mq.Message) error {
	if out.JSONMode() {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		out.Raw(append(data, '\n'))
		return nil
	}

	ts := msg.Timestamp.Format("15:04:05")
	switch msg.Type {
	case mq.MessageTypeOutcomeRecorded:
		p, err := mq.ParsePayload[mq.OutcomePayload](msg)
		if err != nil {
			return err
		}
		o := p.Outcome
		line := fmt.Sprintf("%s  %-30s %-6s %s vs %s", ts, o.Rule, o.Status, o.Blocking, o.Attempted)
		if o.Failure != "" {
			line += fmt.Sprintf("  %s: %q", o.Failure, o.Observed+o.Error)
		}
		out.Raw([]byte(line + "\n"))

	case mq.MessageTypeRunStarted, mq.MessageTypeRunFinished:
		p, err := mq.ParsePayload[mq.RunPayload](msg)
		if err != nil {
			return err
		}
		r := p.Run
		out.Raw([]byte(fmt.Sprintf("%s  run %s %s  %d/%d passed  cluster=%s\n",
			ts, r.ID, r.Status, r.Passed, r.Rules, r.Cluster)))

	default:
		out.Raw([]byte(fmt.Sprintf("%s  %s %s\n", ts, msg.Type, msg.ID)))
	}
	return nil
}
