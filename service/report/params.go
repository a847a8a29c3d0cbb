package report

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"backoffice.GO/core/apperr"
)

const dateLayout = "2006-01-02"

// Params is the decoded, kind-agnostic parameter set. Each handler reads the
// fields it understands.
type Params struct {
	DateFrom      time.Time `mapstructure:"date_from"`
	DateTo        time.Time `mapstructure:"date_to"`
	Date          time.Time `mapstructure:"date"`
	Month         string    `mapstructure:"month"`
	Status        string    `mapstructure:"status"`
	PaymentMethod string    `mapstructure:"payment_method"`
	CategoryID    uint      `mapstructure:"category_id"`
	MinStock      *int      `mapstructure:"min_stock"`
	LowStockOnly  bool      `mapstructure:"low_stock_only"`
	Limit         int       `mapstructure:"limit"`
	Mode          string    `mapstructure:"mode"`
	ProductIDs    []uint    `mapstructure:"product_ids"`
	Types         []string  `mapstructure:"types"`
}

// Range returns [DateFrom, DateTo) with a date-only DateTo extended to the end of that day.
func (p Params) Range() (time.Time, time.Time) {
	to := p.DateTo
	if !to.IsZero() && to.Equal(truncateDay(to)) {
		to = to.AddDate(0, 0, 1)
	}
	return p.DateFrom, to
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func stringToTimeHook() mapstructure.DecodeHookFunc {
	timeType := reflect.TypeOf(time.Time{})
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != timeType || f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return time.Time{}, nil
		}
		if d, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
			return d, nil
		}
		return time.Parse(time.RFC3339, s)
	}
}

var paramsDecodeHook = mapstructure.ComposeDecodeHookFunc(
	stringToTimeHook(),
	mapstructure.StringToSliceHookFunc(","),
)

func decodeParams(raw map[string]interface{}) (Params, error) {
	var p Params
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       paramsDecodeHook,
		Result:           &p,
		TagName:          "mapstructure",
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return p, err
	}
	if err := dec.Decode(raw); err != nil {
		return p, apperr.Validation("invalid report parameters: %v", err)
	}
	if p.Limit < 0 {
		return p, apperr.Validation("limit cannot be negative")
	}
	if p.Month != "" {
		if _, err := time.Parse("2006-01", p.Month); err != nil {
			return p, apperr.Validation("month must look like 2025-09, got %q", p.Month)
		}
	}
	if !p.DateFrom.IsZero() && !p.DateTo.IsZero() && p.DateTo.Before(p.DateFrom) {
		return p, apperr.Validation("date_to is before date_from")
	}
	return p, nil
}

// defaultParams seeds each kind with the parameters it needs when nothing is supplied.
func defaultParams(k Kind, now time.Time) map[string]interface{} {
	today := now.Format(dateLayout)
	lastMonth := now.AddDate(0, 0, -30).Format(dateLayout)
	switch k {
	case KindTopProducts:
		return map[string]interface{}{"limit": 20, "mode": "top", "date_from": lastMonth, "date_to": today}
	case KindDaily:
		return map[string]interface{}{"date": today}
	case KindMonthly:
		return map[string]interface{}{"month": now.Format("2006-01")}
	case KindInventory:
		return map[string]interface{}{}
	default:
		return map[string]interface{}{"date_from": lastMonth, "date_to": today}
	}
}

// mergeParams layers maps left to right; later keys win.
func mergeParams(layers ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
