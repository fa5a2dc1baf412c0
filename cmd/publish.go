package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notification-worker/internal/config"
	"notification-worker/internal/model"
	"notification-worker/internal/rabbitmq"
	"notification-worker/internal/util"
)

var (
	publishType string
	publishData []string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a test notification event to the exchange",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		queue, err := rabbitmq.Dial(rabbitmq.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		})
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer func() { _ = queue.Close() }()

		data := make(map[string]string, len(publishData))
		for _, kv := range publishData {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --data entry %q, want key=value", kv)
			}
			data[k] = v
		}

		ev := model.NotificationEvent{
			ID:        util.New(),
			Type:      model.NotificationType(publishType),
			Timestamp: time.Now().UTC(),
			Data:      data,
		}

		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.Publish(ctx, body); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		fmt.Printf(">> Published event %s type=%s\n", ev.ID, ev.Type)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishType, "type", model.TypeUserRegistration.String(), "notification type")
	publishCmd.Flags().StringArrayVar(&publishData, "data", nil, "payload entries as key=value (repeatable)")
}
