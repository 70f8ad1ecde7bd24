package leap

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StatusCode is a LEAP response status split into its numeric code and
// message, parsed from strings like "200 OK" or "404 Not Found".
type StatusCode struct {
	Code    int
	Message string
	valid   bool
}

// ParseStatusCode parses a LEAP status string. A malformed or
// unparsable leading integer yields a StatusCode with Code 0 that is
// never successful.
func ParseStatusCode(s string) StatusCode {
	space := strings.IndexByte(s, ' ')
	if space == -1 {
		if code, err := strconv.Atoi(s); err == nil {
			return StatusCode{Code: code, valid: true}
		}
		return StatusCode{Message: s}
	}

	code, err := strconv.Atoi(s[:space])
	if err != nil {
		return StatusCode{Message: s}
	}
	return StatusCode{Code: code, Message: s[space+1:], valid: true}
}

// IsSuccessful reports whether the code is in [200, 300).
func (s StatusCode) IsSuccessful() bool {
	return s.valid && s.Code >= 200 && s.Code < 300
}

func (s StatusCode) String() string {
	if !s.valid {
		return s.Message
	}
	if s.Message == "" {
		return strconv.Itoa(s.Code)
	}
	return fmt.Sprintf("%d %s", s.Code, s.Message)
}

// Header is a LEAP response header.
type Header struct {
	StatusCode      *StatusCode
	Url             string
	MessageBodyType string
}

// rawHeader mirrors the wire header, used only for unmarshalling.
type rawHeader struct {
	ClientTag       string `json:"ClientTag,omitempty"`
	Url             string `json:"Url,omitempty"`
	StatusCode      string `json:"StatusCode,omitempty"`
	MessageBodyType string `json:"MessageBodyType,omitempty"`
}

// Response is a parsed LEAP response. Body is kept as raw JSON so
// callers can decode into the specific schema implied by
// CommuniqueType/MessageBodyType.
type Response struct {
	Header         Header
	CommuniqueType string
	Body           json.RawMessage
}

// rawEnvelope mirrors the wire envelope for both directions.
type rawEnvelope struct {
	CommuniqueType string          `json:"CommuniqueType,omitempty"`
	Header         rawHeader       `json:"Header"`
	Body           json.RawMessage `json:"Body,omitempty"`
}

// parseResponse decodes a single inbound frame. The returned tag is
// the ClientTag echoed by the bridge, or "" for unsolicited frames.
func parseResponse(frame []byte) (resp Response, tag string, err error) {
	var raw rawEnvelope
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Response{}, "", &ParseError{Err: err}
	}

	resp.CommuniqueType = raw.CommuniqueType
	resp.Body = raw.Body
	resp.Header.Url = raw.Header.Url
	resp.Header.MessageBodyType = raw.Header.MessageBodyType
	if raw.Header.StatusCode != "" {
		sc := ParseStatusCode(raw.Header.StatusCode)
		resp.Header.StatusCode = &sc
	}

	return resp, raw.Header.ClientTag, nil
}

// buildRequestFrame serialises an outbound request envelope.
func buildRequestFrame(communiqueType, tag, url string, body any) ([]byte, error) {
	env := struct {
		CommuniqueType string `json:"CommuniqueType"`
		Header         struct {
			ClientTag string `json:"ClientTag,omitempty"`
			Url       string `json:"Url"`
		} `json:"Header"`
		Body any `json:"Body,omitempty"`
	}{
		CommuniqueType: communiqueType,
		Body:           body,
	}
	env.Header.ClientTag = tag
	env.Header.Url = url

	return json.Marshal(env)
}

// hrefIDPattern matches the numeric id segment of a LEAP href of the
// form "/kind/NUMERIC" or "/kind/NUMERIC/suffix".
var hrefIDPattern = regexp.MustCompile(`^/[^/]+/(\d+)(?:/[^/]+)?$`)

// IDFromHref extracts the numeric id from a LEAP resource reference.
// It returns an error if href does not match the expected shape.
func IDFromHref(href string) (string, error) {
	match := hrefIDPattern.FindStringSubmatch(href)
	if match == nil {
		return "", fmt.Errorf("leap: cannot find id in href %q", href)
	}
	return match[1], nil
}
