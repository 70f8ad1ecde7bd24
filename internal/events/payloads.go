package events

// hrefRef is the common {"href": "/kind/id"} shape LEAP uses to refer
// to another resource from inside a body.
type hrefRef struct {
	Href string `json:"href"`
}

// zoneStatusPayload is the body of a OneZoneStatus response, whether
// it arrives as the reply to a /zone/{id}/status read or as an
// unsolicited ReadResponse.
type zoneStatusPayload struct {
	ZoneStatus struct {
		Zone     hrefRef `json:"Zone"`
		Level    int     `json:"Level"`
		FanSpeed *string `json:"FanSpeed,omitempty"`
		Tilt     *int    `json:"Tilt,omitempty"`
	} `json:"ZoneStatus"`
}

// zoneStatusesPayload is the bulk body delivered to the RA3 /zone/status
// subscription.
type zoneStatusesPayload struct {
	ZoneStatuses []struct {
		Zone     hrefRef `json:"Zone"`
		Level    int     `json:"Level"`
		FanSpeed *string `json:"FanSpeed,omitempty"`
		Tilt     *int    `json:"Tilt,omitempty"`
	} `json:"ZoneStatuses"`
}

// ledStatusPayload is the body of a OneLEDStatus response and of the
// per-LED /led/{id}/status subscription.
type ledStatusPayload struct {
	LEDStatus struct {
		LED   hrefRef `json:"LED"`
		State string  `json:"State"`
	} `json:"LEDStatus"`
}

// buttonStatusEventPayload is the body of a /button/{id}/status/event
// subscription, per the S2 scenario in §8.
type buttonStatusEventPayload struct {
	ButtonStatus struct {
		Button      hrefRef `json:"Button"`
		ButtonEvent struct {
			EventType string `json:"EventType"`
		} `json:"ButtonEvent"`
	} `json:"ButtonStatus"`
}

// occupancyGroupStatusesPayload is the body of the /occupancygroup/status
// subscription and its initial success response, per the S3 scenario.
type occupancyGroupStatusesPayload struct {
	OccupancyGroupStatuses []struct {
		OccupancyGroup hrefRef `json:"OccupancyGroup"`
		OccupancyStatus string `json:"OccupancyStatus"`
	} `json:"OccupancyGroupStatuses"`
}

// areaStatusesPayload is the body of the RA3 /area/status subscription.
// Entries missing OccupancyStatus are ignored per §4.5.
type areaStatusesPayload struct {
	AreaStatuses []struct {
		Area            hrefRef `json:"Area"`
		OccupancyStatus *string `json:"OccupancyStatus,omitempty"`
	} `json:"AreaStatuses"`
}
