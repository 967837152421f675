package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"planetarium-service/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// Publish writes one message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// ReservationEvent is the payload streamed on reservation lifecycle topics.
type ReservationEvent struct {
	ReservationID string                  `json:"reservation_id"`
	UserID        string                  `json:"user_id"`
	Tickets       []models.TicketResponse `json:"tickets"`
}

func (p *Producer) PublishReservationCreated(topic string, res models.Reservation, tickets []models.TicketResponse) error {
	return p.publishReservation(topic, res, tickets)
}

func (p *Producer) PublishReservationCancelled(topic string, res models.Reservation) error {
	return p.publishReservation(topic, res, nil)
}

// TicketEvent is the payload streamed when a single seat is freed.
type TicketEvent struct {
	TicketID      string `json:"ticket_id"`
	ShowSessionID string `json:"show_session_id"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}

func (p *Producer) PublishTicketCancelled(topic string, ticket models.TicketResponse) error {
	event := TicketEvent{
		TicketID:      ticket.TicketID,
		ShowSessionID: ticket.ShowSessionID,
		Row:           ticket.Row,
		Seat:          ticket.Seat,
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(topic, ticket.TicketID, msgBytes)
}

func (p *Producer) publishReservation(topic string, res models.Reservation, tickets []models.TicketResponse) error {
	event := ReservationEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		Tickets:       tickets,
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(topic, res.ID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
