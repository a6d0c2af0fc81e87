package internal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"jiorelay/entity"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sign computes the secure hash of a parameter set:
// empty values are dropped, the rest are ordered by field name,
// their rendered values are concatenated and signed with HMAC-SHA256,
// and the mac is returned as lowercase hex.
func Sign(params entity.ParameterSet, key string) (string, error) {
	if _, ok := params[entity.FieldSecureHash]; ok {
		return "", &RelayError{
			Kind:    MalformedParameter,
			Status:  http.StatusInternalServerError,
			Message: "secure hash must not be signed",
		}
	}
	message, err := canonicalString(params)
	if err != nil {
		return "", err
	}
	return mac256(message, key), nil
}

func canonicalString(params entity.ParameterSet) (string, error) {
	names := make([]string, 0, len(params))
	values := make(map[string]string, len(params))
	for name, value := range params {
		text, include, err := RenderValue(value)
		if err != nil {
			return "", errMalformedParameter(name, value, http.StatusInternalServerError)
		}
		if !include {
			continue
		}
		names = append(names, name)
		values[name] = text
	}

	// collator is not safe for concurrent use, one per call
	collator := collate.New(language.Und)
	sort.Slice(names, func(i, j int) bool {
		if c := collator.CompareString(names[i], names[j]); c != 0 {
			return c < 0
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(values[name])
	}
	return sb.String(), nil
}

// RenderValue returns the exact text a value has in the outgoing envelope.
// include is false for values that take no part in the signature (nil, empty string).
func RenderValue(value any) (text string, include bool, err error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, v != "", nil
	case json.Number:
		return v.String(), v != "", nil
	case decimal.Decimal:
		if err := checkMagnitude(v); err != nil {
			return "", false, err
		}
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	case int:
		return strconv.Itoa(v), true, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), true, nil
	case int64:
		return strconv.FormatInt(v, 10), true, nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), true, nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true, nil
	case uint64:
		return strconv.FormatUint(v, 10), true, nil
	case float32:
		return renderFloat(float64(v), 32)
	case float64:
		return renderFloat(v, 64)
	default:
		return "", false, fmt.Errorf("unsupported value type %T", value)
	}
}

func renderFloat(f float64, bitSize int) (string, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false, fmt.Errorf("non-finite number %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize), true, nil
}

func mac256(message, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
