package datafetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// Fetch configuration constants
const (
	YahooChartAPIURL   = "https://query1.finance.yahoo.com/v8/finance/chart/%s?range=%s&interval=1d"
	DefaultFetchRange  = "1mo"
	BackfillFetchRange = "1y"
	FetchRequestDelay  = 250 * time.Millisecond
)

// DataFetcher pulls daily OHLCV bars for ASX symbols from the Yahoo Finance
// chart endpoint and stores them in the stock_prices table
type DataFetcher struct {
	db         *gorm.DB
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDataFetcher creates a new data fetcher instance
func NewDataFetcher(db *gorm.DB, logger *zap.Logger) *DataFetcher {
	return &DataFetcher{
		db: db,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// yahooChartResponse mirrors the subset of the chart payload we consume
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// SeedStockList inserts the tracked ASX symbols if they are not present yet
func (df *DataFetcher) SeedStockList() error {
	stocks := []models.Stock{
		{Symbol: "BHP.AX", Name: "BHP Group", Sector: "Materials", Status: "active"},
		{Symbol: "CBA.AX", Name: "Commonwealth Bank", Sector: "Financials", Status: "active"},
		{Symbol: "CSL.AX", Name: "CSL Limited", Sector: "Health Care", Status: "active"},
		{Symbol: "NAB.AX", Name: "National Australia Bank", Sector: "Financials", Status: "active"},
		{Symbol: "WBC.AX", Name: "Westpac Banking", Sector: "Financials", Status: "active"},
		{Symbol: "ANZ.AX", Name: "ANZ Group", Sector: "Financials", Status: "active"},
		{Symbol: "WES.AX", Name: "Wesfarmers", Sector: "Consumer Discretionary", Status: "active"},
		{Symbol: "WOW.AX", Name: "Woolworths Group", Sector: "Consumer Staples", Status: "active"},
		{Symbol: "FMG.AX", Name: "Fortescue", Sector: "Materials", Status: "active"},
		{Symbol: "TLS.AX", Name: "Telstra Group", Sector: "Telecommunications", Status: "active"},
	}

	for _, stock := range stocks {
		var existing models.Stock
		if err := df.db.Where("symbol = ?", stock.Symbol).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := df.db.Create(&stock).Error; err != nil {
					return fmt.Errorf("failed to create stock %s: %w", stock.Symbol, err)
				}
			} else {
				return err
			}
		}
	}

	return nil
}

// FetchDailyBars fetches daily bars for one symbol over the given range
// (e.g. "1mo", "1y") and upserts them into stock_prices
func (df *DataFetcher) FetchDailyBars(symbol, fetchRange string) (int, error) {
	url := fmt.Sprintf(YahooChartAPIURL, symbol, fetchRange)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "stockwatch-backend/1.0")

	resp, err := df.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("chart request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("chart request for %s returned %d: %s", symbol, resp.StatusCode, string(body))
	}

	var payload yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return 0, fmt.Errorf("chart API error for %s: %s", symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, fmt.Errorf("chart response for %s has no quote data", symbol)
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	stored := 0
	var prevClose *float64
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}

		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		closePrice := *quote.Close[i]

		bar := models.StockPrice{
			Symbol: symbol,
			Date:   date,
			Close:  decimal.NewFromFloat(closePrice),
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = decimal.NewFromFloat(*quote.Open[i])
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = decimal.NewFromFloat(*quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = decimal.NewFromFloat(*quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		if i < len(adjClose) && adjClose[i] != nil {
			bar.AdjClose = decimal.NewFromFloat(*adjClose[i])
		} else {
			bar.AdjClose = bar.Close
		}
		if prevClose != nil && *prevClose != 0 {
			bar.Change = decimal.NewFromFloat(closePrice - *prevClose)
			bar.ChangePercent = decimal.NewFromFloat((closePrice - *prevClose) / *prevClose * 100)
		}
		prevClose = &closePrice

		// keep existing bars untouched; re-running a fetch must be idempotent
		var existing models.StockPrice
		err := df.db.Where("symbol = ? AND date = ?", symbol, date).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return stored, err
		}
		if err := df.db.Create(&bar).Error; err != nil {
			return stored, fmt.Errorf("failed to store bar %s %s: %w", symbol, date.Format("2006-01-02"), err)
		}
		stored++
	}

	return stored, nil
}

// fetchRangeFor picks the fetch range for a symbol: symbols with no stored
// bars yet get a one-year backfill, everything else the short catch-up range
func (df *DataFetcher) fetchRangeFor(symbol string) string {
	var count int64
	if err := df.db.Model(&models.StockPrice{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
		df.logger.Warn("failed to count stored bars",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return DefaultFetchRange
	}
	if count == 0 {
		return BackfillFetchRange
	}
	return DefaultFetchRange
}

// FetchAllDailyBars fetches daily bars for every active stock, backfilling
// symbols seen for the first time. Per-symbol failures are logged and skipped
// so one bad symbol does not stall the rest of the ingestion run.
func (df *DataFetcher) FetchAllDailyBars() (int, error) {
	var stocks []models.Stock
	if err := df.db.Where("status = ?", "active").Find(&stocks).Error; err != nil {
		return 0, fmt.Errorf("failed to load stocks: %w", err)
	}

	total := 0
	for _, stock := range stocks {
		stored, err := df.FetchDailyBars(stock.Symbol, df.fetchRangeFor(stock.Symbol))
		if err != nil {
			df.logger.Warn("failed to fetch daily bars",
				zap.String("symbol", stock.Symbol),
				zap.Error(err),
			)
			continue
		}
		total += stored
		time.Sleep(FetchRequestDelay)
	}

	df.logger.Info("daily ingestion finished",
		zap.Int("stocks", len(stocks)),
		zap.Int("bars_stored", total),
	)
	return total, nil
}
