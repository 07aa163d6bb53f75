package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

const (
	subjectImportCompleted = "catalog.import.completed"
	subjectScanCompleted   = "competitor.scan.completed"
)

// ImportCompletedEvent is the audit payload published after a catalog import.
type ImportCompletedEvent struct {
	Total       int            `json:"total"`
	Inserted    int            `json:"inserted"`
	Featured    int            `json:"featured"`
	PerCategory map[string]int `json:"perCategory"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ScanCompletedEvent is the audit payload published after a competitor scan.
type ScanCompletedEvent struct {
	ScanID        string    `json:"scanId"`
	CompetitorURL string    `json:"competitorUrl"`
	Status        string    `json:"status"`
	ProductsFound int       `json:"productsFound"`
	MatchesFound  int       `json:"matchesFound"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher emits audit events over NATS. It is only constructed when
// NATS_URL is set; callers hold a nil *Publisher otherwise and every method
// tolerates that.
type Publisher struct {
	nc  *nats.Conn
	log *logrus.Entry
}

func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		nc:  nc,
		log: logger.WithField("component", "events"),
	}, nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishImportCompleted announces a finished catalog import run.
func (p *Publisher) PublishImportCompleted(_ context.Context, total, inserted, featured int, perCategory map[string]int) {
	if p == nil {
		return
	}
	p.publish(subjectImportCompleted, ImportCompletedEvent{
		Total:       total,
		Inserted:    inserted,
		Featured:    featured,
		PerCategory: perCategory,
		Timestamp:   time.Now().UTC(),
	})
}

// PublishScanCompleted announces a finished competitor scan.
func (p *Publisher) PublishScanCompleted(_ context.Context, scan *models.CompetitorScan) {
	if p == nil {
		return
	}
	p.publish(subjectScanCompleted, ScanCompletedEvent{
		ScanID:        scan.ID.String(),
		CompetitorURL: scan.CompetitorURL,
		Status:        string(scan.Status),
		ProductsFound: scan.ProductsFound,
		MatchesFound:  scan.MatchesFound,
		Timestamp:     time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Event marshal failed")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Event publish failed")
	}
}
