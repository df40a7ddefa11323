package rest

import (
	"net/http"
	"spotbot/internal/logger"
	"time"
)

type Client struct {
	baseURL     string
	accountType string
	apiKey      string
	secret      string
	httpClient  *http.Client
	log         *logger.Logger

	fillPollAttempts int
	fillPollDelay    time.Duration
}

func New(baseURL, apiKey, secret, accountType string, log *logger.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		accountType: accountType,
		apiKey:      apiKey,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log:              log,
		fillPollAttempts: 5,
		fillPollDelay:    500 * time.Millisecond,
	}
}

type bybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

func (r *bybitResponse[T]) status() (int, string) {
	return r.RetCode, r.RetMsg
}

type instrumentInfo struct {
	List []struct {
		Symbol        string `json:"symbol"`
		BaseCoin      string `json:"baseCoin"`
		QuoteCoin     string `json:"quoteCoin"`
		LotSizeFilter struct {
			BasePrecision string `json:"basePrecision"`
			MinOrderQty   string `json:"minOrderQty"`
			QtyStep       string `json:"qtyStep"`
		} `json:"lotSizeFilter"`
	} `json:"list"`
}

type klineResult struct {
	Symbol string     `json:"symbol"`
	List   [][]string `json:"list"`
}

type tickerResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

type walletResult struct {
	List []struct {
		Coin []struct {
			Coin          string `json:"coin"`
			WalletBalance string `json:"walletBalance"`
			Locked        string `json:"locked"`
			Free          string `json:"free"`
		} `json:"coin"`
	} `json:"list"`
}

type executionResult struct {
	List []struct {
		OrderID   string `json:"orderId"`
		OrderLink string `json:"orderLinkId"`
		ExecID    string `json:"execId"`
		Side      string `json:"side"`
		ExecPrice string `json:"execPrice"`
		ExecQty   string `json:"execQty"`
		ExecTime  string `json:"execTime"`
	} `json:"list"`
}
