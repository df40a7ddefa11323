package rest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"spotbot/internal/exchange"
	"strconv"
	"time"
)

const recvWindow = "5000"

// Bybit return codes the engine reacts to.
var (
	transientCodes = map[int]bool{
		10000: true, // server timeout
		10002: true, // request time outside recv window
		10006: true, // too many visits
		10016: true, // internal server error
	}
	lotSizeCodes = map[int]bool{
		170136: true, // order quantity exceeded upper limit
		170137: true, // order volume has too many decimals
		170148: true, // market order amount decimal too long
	}
)

// envelope is implemented by every bybitResponse.
type envelope interface {
	status() (int, string)
}

func classifyRetCode(code int) error {
	switch {
	case transientCodes[code]:
		return exchange.ErrTransient
	case lotSizeCodes[code]:
		return exchange.ErrLotSize
	default:
		return nil
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, auth bool, out envelope) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("Не удалось подготовить тело запроса: %w", err)
		}
	}

	target := c.baseURL + path
	query := params.Encode()
	if query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if auth {
		// GET signs the query string, POST signs the JSON body
		signed := string(payload)
		if method == http.MethodGet {
			signed = query
		}
		c.signRequest(req, signed)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка запроса %s: %w: %w", path, exchange.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ %s: %w: %w", path, exchange.ErrTransient, err)
	}

	return decodeResponse(resp.StatusCode, resp.Status, data, out)
}

func (c *Client) signRequest(req *http.Request, signed string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", sign(c.secret, timestamp+c.apiKey+recvWindow+signed))
}

// decodeResponse maps HTTP status and retCode onto the exchange error kinds.
func decodeResponse(statusCode int, status string, data []byte, out envelope) error {
	switch {
	case statusCode >= 500, statusCode == http.StatusTooManyRequests, statusCode == http.StatusForbidden:
		return exchange.NewAPIError(statusCode, 0, status, exchange.ErrTransient)
	}

	if err := json.Unmarshal(data, out); err != nil {
		if statusCode >= 400 {
			return exchange.NewAPIError(statusCode, 0, status, nil)
		}
		return fmt.Errorf("Не удалось разобрать ответ: %w: %w", exchange.ErrBadData, err)
	}

	if code, msg := out.status(); code != 0 {
		return exchange.NewAPIError(statusCode, code, msg, classifyRetCode(code))
	}
	if statusCode >= 400 {
		return exchange.NewAPIError(statusCode, 0, status, nil)
	}
	return nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
