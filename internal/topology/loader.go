package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/events"
	"github.com/nugget/leapctl/internal/leap"
)

// Loader runs the bootstrap sequence once per successful connection.
type Loader struct {
	model          *bridgemodel.Model
	router         *events.Router
	logger         *slog.Logger
	requestTimeout time.Duration
}

// NewLoader builds a Loader. requestTimeout bounds every individual
// read/subscribe issued during bootstrap, matching the façade's
// request timeout (spec §4.3 applies the same 5s budget uniformly).
func NewLoader(model *bridgemodel.Model, router *events.Router, logger *slog.Logger, requestTimeout time.Duration) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{model: model, router: router, logger: logger, requestTimeout: requestTimeout}
}

// Load resets the model and runs the family-appropriate bootstrap
// sequence. It is intended to be used directly as a
// session.OnConnectFunc.
func (l *Loader) Load(ctx context.Context, p *leap.Protocol) error {
	l.model.Reset()

	if err := l.loadAreas(ctx, p); err != nil {
		return fmt.Errorf("topology: load areas: %w", err)
	}

	productType, err := l.readProductType(ctx, p)
	if err != nil {
		return fmt.Errorf("topology: read product type: %w", err)
	}
	l.logger.Info("leap bridge product type", "product_type", productType)

	if isRA3Family(productType) {
		return l.loadRA3(ctx, p)
	}
	return l.loadCaseta(ctx, p)
}

func isRA3Family(productType string) bool {
	return strings.Contains(productType, "RadioRa3") ||
		strings.Contains(productType, "QSX") ||
		strings.Contains(productType, "HomeWorksQS")
}

func (l *Loader) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.requestTimeout)
}

func (l *Loader) loadAreas(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/area", nil)
	if err != nil {
		return err
	}

	var body areaListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, a := range body.Areas {
		id, err := leap.IDFromHref(a.Href)
		if err != nil {
			l.logger.Error("leap area with unparsable href", "href", a.Href, "error", err)
			continue
		}
		var parentID string
		if a.Parent != nil {
			if pid, err := leap.IDFromHref(a.Parent.Href); err == nil {
				parentID = pid
			}
		}
		l.model.PutArea(&bridgemodel.Area{ID: id, Name: a.Name, ParentID: parentID})
	}
	return nil
}

func (l *Loader) readProductType(ctx context.Context, p *leap.Protocol) (string, error) {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/project", nil)
	if err != nil {
		return "", err
	}
	var body projectBody
	if err := unmarshalBody(resp, &body); err != nil {
		return "", err
	}
	return body.Project.ProductType, nil
}

// areaName returns a human name for an area, falling back to the id
// itself if the area is unknown (should not happen once loadAreas has
// run, but occupancy group naming must not panic on an inconsistency).
func (l *Loader) areaName(areaID string) string {
	if a, ok := l.model.GetAreaByID(areaID); ok {
		return a.Name
	}
	return areaID
}

func unmarshalBody(resp leap.Response, v any) error {
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		return nil
	}
	return json.Unmarshal(resp.Body, v)
}
