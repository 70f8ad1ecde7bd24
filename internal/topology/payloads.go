package topology

import "encoding/json"

type hrefRef struct {
	Href string `json:"href"`
}

type areaListBody struct {
	Areas []struct {
		Href   string   `json:"href"`
		Name   string   `json:"Name"`
		Parent *hrefRef `json:"Parent,omitempty"`
	} `json:"Areas"`
}

type projectBody struct {
	Project struct {
		ProductType string `json:"ProductType"`
	} `json:"Project"`
}

type deviceListBody struct {
	Devices []deviceEntry `json:"Devices"`
}

type deviceEntry struct {
	Href                string    `json:"href"`
	Name                string    `json:"Name,omitempty"`
	FullyQualifiedName  []string  `json:"FullyQualifiedName,omitempty"`
	DeviceType          string    `json:"DeviceType"`
	ModelNumber         string    `json:"ModelNumber,omitempty"`
	SerialNumber        json.Number `json:"SerialNumber,omitempty"`
	Area                *hrefRef  `json:"Area,omitempty"`
	ParentDevice        *hrefRef  `json:"ParentDevice,omitempty"`
	LocalZones          []hrefRef `json:"LocalZones,omitempty"`
	ButtonGroups        []hrefRef `json:"ButtonGroups,omitempty"`
	OccupancySensors    []hrefRef `json:"OccupancySensors,omitempty"`
}

type buttonListBody struct {
	Buttons []buttonEntry `json:"Buttons"`
}

type buttonEntry struct {
	Href         string   `json:"href"`
	Name         string   `json:"Name,omitempty"`
	Engraving    *struct {
		Text string `json:"Text"`
	} `json:"Engraving,omitempty"`
	ButtonNumber int      `json:"ButtonNumber"`
	Group        *hrefRef `json:"Group,omitempty"`
	Device       *hrefRef `json:"Device,omitempty"`
}

type virtualButtonListBody struct {
	VirtualButtons []struct {
		Href         string `json:"href"`
		Name         string `json:"Name,omitempty"`
		IsProgrammed bool   `json:"IsProgrammed"`
	} `json:"VirtualButtons"`
}

type occupancyGroupListBody struct {
	OccupancyGroups []struct {
		Href             string    `json:"href"`
		OccupancySensors []hrefRef `json:"OccupancySensors,omitempty"`
		AssociatedAreas  []struct {
			Area hrefRef `json:"Area"`
		} `json:"AssociatedAreas,omitempty"`
	} `json:"OccupancyGroups"`
}

type associatedControlStationBody struct {
	ControlStations []struct {
		AssociatedGangedDevices []struct {
			Device hrefRef `json:"Device"`
		} `json:"AssociatedGangedDevices,omitempty"`
	} `json:"ControlStations"`
}

type associatedZoneBody struct {
	AssociatedZones []struct {
		Zone hrefRef `json:"Zone"`
	} `json:"AssociatedZones"`
}

type expandedButtonGroupBody struct {
	ButtonGroups []struct {
		Href    string `json:"href"`
		Buttons []struct {
			Href         string   `json:"href"`
			Name         string   `json:"Name,omitempty"`
			Engraving    *struct {
				Text string `json:"Text"`
			} `json:"Engraving,omitempty"`
			ButtonNumber int      `json:"ButtonNumber"`
			AssociatedLED *hrefRef `json:"AssociatedLED,omitempty"`
		} `json:"Buttons"`
	} `json:"ButtonGroups"`
}
