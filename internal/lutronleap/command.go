package lutronleap

// commandRequest is the body shape for CreateRequest calls against a
// zone, button, or virtual-button commandprocessor, per §4.6.
type commandRequest struct {
	Command command `json:"Command"`
}

type command struct {
	CommandType                   string                  `json:"CommandType"`
	DimmedLevelParameters         *levelFadeParameters    `json:"DimmedLevelParameters,omitempty"`
	SpectrumTuningLevelParameters *levelFadeParameters    `json:"SpectrumTuningLevelParameters,omitempty"`
	Parameter                     []levelParameter        `json:"Parameter,omitempty"`
	FanSpeedParameters            *fanSpeedParameters     `json:"FanSpeedParameters,omitempty"`
	TiltParameters                *tiltParameters         `json:"TiltParameters,omitempty"`
}

type levelFadeParameters struct {
	Level    int    `json:"Level"`
	FadeTime string `json:"FadeTime,omitempty"`
}

type levelParameter struct {
	Type  string `json:"Type"`
	Value int    `json:"Value"`
}

type fanSpeedParameters struct {
	FanSpeed string `json:"FanSpeed"`
}

type tiltParameters struct {
	Tilt int `json:"Tilt"`
}

func goToDimmedLevel(level int, fadeTime string) commandRequest {
	return commandRequest{Command: command{
		CommandType:           "GoToDimmedLevel",
		DimmedLevelParameters: &levelFadeParameters{Level: level, FadeTime: fadeTime},
	}}
}

func goToSpectrumTuningLevel(level int, fadeTime string) commandRequest {
	return commandRequest{Command: command{
		CommandType:                   "GoToSpectrumTuningLevel",
		SpectrumTuningLevelParameters: &levelFadeParameters{Level: level, FadeTime: fadeTime},
	}}
}

func goToLevel(level int) commandRequest {
	return commandRequest{Command: command{
		CommandType: "GoToLevel",
		Parameter:   []levelParameter{{Type: "Level", Value: level}},
	}}
}

func goToFanSpeed(speed string) commandRequest {
	return commandRequest{Command: command{
		CommandType:         "GoToFanSpeed",
		FanSpeedParameters:  &fanSpeedParameters{FanSpeed: speed},
	}}
}

func goToTilt(tilt int) commandRequest {
	return commandRequest{Command: command{
		CommandType:     "GoToTilt",
		TiltParameters:  &tiltParameters{Tilt: tilt},
	}}
}

func simpleCommand(commandType string) commandRequest {
	return commandRequest{Command: command{CommandType: commandType}}
}

// ledStatusUpdate is the body for UpdateRequest /led/{id}/status.
type ledStatusUpdate struct {
	LEDStatus ledStatusState `json:"LEDStatus"`
}

type ledStatusState struct {
	State string `json:"State"`
}
