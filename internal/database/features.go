package database

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/oracle"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTableNotFound is returned when a symbol has no feature table.
var ErrTableNotFound = errors.New("feature table not found")

// Columns every feature table carries besides the features themselves.
const (
	colTimestamp = "timestamp"
	colOpen      = "open"
	colHigh      = "high"
	colLow       = "low"
	colClose     = "close"
	colVolume    = "volume"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

// Store reads candle and feature tables and persists run results.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a store on an open database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// TableName returns the feature table of symbol, e.g. "ETH/USDT" -> "ETH_USDT_features".
func TableName(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "_") + "_features"
}

// LoadSeries reads the candles and feature rows of symbol in time order. With an empty
// features list every numeric column other than OHLCV becomes a feature. Probability
// columns are always carried so the column oracle can read them. Rows with a missing
// price are skipped.
func (s *Store) LoadSeries(symbol string, features []string) (market.Series, error) {
	table := TableName(symbol)
	if !s.db.Migrator().HasTable(table) {
		return market.Series{}, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	var rows []map[string]interface{}
	if err := s.db.Table(table).Order(colTimestamp).Find(&rows).Error; err != nil {
		return market.Series{}, fmt.Errorf("failed to read %s: %w", table, err)
	}

	series := market.Series{
		Symbol:   symbol,
		Candles:  make([]market.Candle, 0, len(rows)),
		Features: make([]market.FeatureRow, 0, len(rows)),
	}
	skipped := 0
	for i, row := range rows {
		ts, err := parseTimestamp(row[colTimestamp])
		if err != nil {
			return market.Series{}, fmt.Errorf("%s row %d: %w", table, i, err)
		}

		var prices [4]float64
		ok := true
		for j, col := range []string{colOpen, colHigh, colLow, colClose} {
			if prices[j], ok = toFloat(row[col]); !ok {
				break
			}
		}
		if !ok {
			skipped++
			continue
		}

		values, err := featureValues(row, features)
		if err != nil {
			return market.Series{}, fmt.Errorf("%s row %d: %w", table, i, err)
		}

		series.Candles = append(series.Candles, market.Candle{
			Timestamp: ts, Open: prices[0], High: prices[1], Low: prices[2], Close: prices[3],
		})
		series.Features = append(series.Features, market.FeatureRow{Timestamp: ts, Values: values})
	}

	if skipped > 0 {
		s.logger.Warn("Skipped rows without prices", zap.String("symbol", symbol), zap.Int("rows", skipped))
	}
	s.logger.Info("Loaded feature table",
		zap.String("symbol", symbol),
		zap.String("table", table),
		zap.Int("rows", len(series.Candles)))
	return series, nil
}

// LoadAll loads every symbol. A symbol that cannot be loaded is logged and left out,
// so the aligner sees only usable series.
func (s *Store) LoadAll(symbols []string, features []string) []market.Series {
	out := make([]market.Series, 0, len(symbols))
	for _, sym := range symbols {
		series, err := s.LoadSeries(sym, features)
		if err != nil {
			s.logger.Warn("Skipping symbol", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		out = append(out, series)
	}
	return out
}

func featureValues(row map[string]interface{}, features []string) (map[string]float64, error) {
	values := make(map[string]float64)
	if len(features) == 0 {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch k {
			case colTimestamp, colOpen, colHigh, colLow, colClose, colVolume:
				continue
			}
			if v, ok := toFloat(row[k]); ok {
				values[k] = v
			}
		}
		return values, nil
	}

	for _, name := range features {
		raw, present := row[name]
		if !present {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		v, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("feature %q is not numeric: %v", name, raw)
		}
		values[name] = v
	}
	for k, raw := range row {
		if !oracle.IsProbabilityColumn(k) {
			continue
		}
		if v, ok := toFloat(raw); ok {
			values[k] = v
		}
	}
	return values, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// parseTimestamp accepts the encodings feature tables use: text datetimes,
// epoch milliseconds, or a driver-decoded time.
func parseTimestamp(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case int64:
		return time.UnixMilli(x).UTC(), nil
	case float64:
		return time.UnixMilli(int64(x)).UTC(), nil
	case []byte:
		return parseTimestamp(string(x))
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, x); err == nil {
				return ts.UTC(), nil
			}
		}
		if ms, err := strconv.ParseInt(x, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", x)
	case nil:
		return time.Time{}, errors.New("timestamp is NULL")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
