// Package queue contains the background consumer that listens to the
// reservation.confirmed queue and writes structured logs to
// logs/reservations.log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/showtime-booking/internal/logger"
)

// StartReservationConsumer connects to RabbitMQ, declares the
// reservation.confirmed queue (durable), and starts consuming messages.
// Each message is appended to logs/reservations.log in a single-line,
// human-friendly format.  The function runs a reconnect loop; it keeps
// running and logs any processing errors while rejecting the offending
// message so the server continues operating.
func StartReservationConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("reservation consumer dial failed",
				zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			logger.Warn("reservation consume loop ended, reconnecting", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("reservation consumer set QoS failed", zap.Error(err))
	}

	_, err = ch.QueueDeclare(reservationQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(reservationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			logger.Error("reservation message handling failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev ReservationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "reservations.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := "[]"
	if len(ev.SeatLabels) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.SeatLabels, ","))
	}

	line := fmt.Sprintf("[%s] Reservation confirmed | reservation_id=%d | user_id=%d | showtime_id=%d | total=%d cents | seats=%s\n",
		ev.ConfirmedAt, ev.ReservationID, ev.UserID, ev.ShowtimeID, ev.TotalPriceCents, seats)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
