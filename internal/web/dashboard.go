package web

import (
	"net/http"

	"github.com/nugget/leapctl/internal/bridgemodel"
)

// dashboardData is the template context for the topology overview page.
type dashboardData struct {
	Devices []*bridgemodel.Device
	Scenes  []*bridgemodel.Scene
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.render(w, "dashboard.html", dashboardData{
		Devices: s.bridge.GetDevices(),
		Scenes:  s.bridge.GetScenes(),
	})
}
