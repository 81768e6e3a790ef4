package gaode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingKey is returned before any request when no usable key is configured.
var ErrMissingKey = errors.New("gaode: api key missing")

// Info codes returned in the infocode field.
const (
	InfoCodeOK                   = "10000"
	InfoCodeInvalidKey           = "10001"
	InfoCodeDailyQueryOverLimit  = "10003"
	InfoCodeAccessTooFrequent    = "10004"
	InfoCodeInvalidUserIP        = "10005"
	InfoCodeServiceOverLimit     = "10014"
	InfoCodeCQPSExceeded         = "10019"
	InfoCodeCKQPSExceeded        = "10020"
	InfoCodeCUQPSExceeded        = "10021"
	InfoCodeInvalidParams        = "20000"
	InfoCodeMissingRequiredParam = "20001"
)

// APIError is a response whose status field was not "1".
type APIError struct {
	Info     string
	InfoCode string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gaode: api error %s (infocode %s)", e.Info, e.InfoCode)
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gaode: unexpected status %d", e.StatusCode)
}

// SearchResponse is one page of a place search.
type SearchResponse struct {
	Status   string     `json:"status"`
	Info     string     `json:"info"`
	InfoCode string     `json:"infocode"`
	Count    FlexString `json:"count"`
	POIs     []Place    `json:"pois"`
}

// Total returns the count field as an integer, 0 when absent or malformed.
func (r *SearchResponse) Total() int {
	n, err := strconv.Atoi(string(r.Count))
	if err != nil {
		return 0
	}
	return n
}

// Place is a raw POI record as returned by the API.
type Place struct {
	ID       FlexString `json:"id"`
	POIID    FlexString `json:"poiid"`
	Name     FlexString `json:"name"`
	Type     FlexString `json:"type"`
	TypeCode FlexString `json:"typecode"`
	Address  FlexString `json:"address"`
	Location FlexString `json:"location"`
	CityName FlexString `json:"cityname"`
	AdCode   FlexString `json:"adcode"`
	AdName   FlexString `json:"adname"`
	PName    FlexString `json:"pname"`

	// Raw is the record exactly as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the original bytes in Raw.
func (p *Place) UnmarshalJSON(data []byte) error {
	type alias Place
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Place(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// FlexString decodes the loosely typed values the API returns for text fields:
// strings, numbers, and "[]" for missing values.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case data[0] == '[':
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			*s = ""
			return nil
		}
		if len(parts) > 0 {
			*s = FlexString(parts[0])
		} else {
			*s = ""
		}
	default:
		*s = FlexString(data)
	}
	return nil
}

// String returns the plain string value.
func (s FlexString) String() string {
	return string(s)
}
