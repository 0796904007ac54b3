package tipengine

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// InvalidRequestMarker is embedded by the tipping site in bodies of
// rejected requests.
const InvalidRequestMarker = "Request is not valid"

// ErrMalformedBalance is returned when a balance document cannot be read.
var ErrMalformedBalance = errors.New("malformed balance document")

// BalanceRequest asks for the spendable tokens of a viewer.
type BalanceRequest struct {
	UserID    string
	SortOrder string
	Hash      string
}

// TipRequest debits tokens from a viewer in favour of a broadcast.
type TipRequest struct {
	Tokens        int
	ViewerID      string
	BroadcastID   string
	BroadcasterID string
	SortOrder     string
	Hash          string
}

// Engine abstracts the external tipping service.
type Engine interface {
	// FetchBalance returns the raw balance document with any
	// InvalidRequestMarker already stripped.
	FetchBalance(ctx context.Context, req BalanceRequest) ([]byte, error)

	// SendTip submits the debit. A nil error means the site accepted it.
	SendTip(ctx context.Context, req TipRequest) error
}

type balanceDocument struct {
	XMLName xml.Name `xml:"root"`
	Data    []struct {
		Tokens []string `xml:"tokens"`
	} `xml:"data"`
}

// ParseBalance extracts root/data/tokens from a balance document.
func ParseBalance(body []byte) (int, error) {
	var doc balanceDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedBalance, err)
	}
	if len(doc.Data) == 0 || len(doc.Data[0].Tokens) == 0 {
		return 0, fmt.Errorf("%w: tokens missing", ErrMalformedBalance)
	}
	n, err := leadingInt(doc.Data[0].Tokens[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedBalance, err)
	}
	return n, nil
}

// leadingInt parses the integer prefix of s, so "12.50" reads as 12.
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	return strconv.Atoi(s[:end])
}
