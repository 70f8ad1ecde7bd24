package web

import (
	"net/http"
	"strings"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/history"
)

// deviceDetailData is the template context for a single device's page.
type deviceDetailData struct {
	Device *bridgemodel.Device
	Events []history.Event
}

func (s *Server) handleDeviceDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/devices/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	var found *bridgemodel.Device
	for _, d := range s.bridge.GetDevices() {
		if d.ID == id {
			found = d
			break
		}
	}
	if found == nil {
		http.NotFound(w, r)
		return
	}

	data := deviceDetailData{Device: found}
	if s.history != nil {
		events, err := s.history.ForDevice(id, 50)
		if err != nil {
			s.logger.Warn("history lookup failed", "device_id", id, "error", err)
		} else {
			data.Events = events
		}
	}

	s.render(w, "device_detail.html", data)
}
