package nl2sql

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ClientCache reuses one Client per model and key pair so repeated requests
// share a connection pool. Idle entries fall out after the configured TTL.
type ClientCache struct {
	baseURL     string
	temperature float64
	timeout     time.Duration
	clients     *ttlcache.Cache[string, *Client]
}

func NewClientCache(baseURL string, temperature float64, timeout, ttl time.Duration) *ClientCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cache := ttlcache.New[string, *Client](
		ttlcache.WithTTL[string, *Client](ttl),
	)
	go cache.Start()
	return &ClientCache{
		baseURL:     baseURL,
		temperature: temperature,
		timeout:     timeout,
		clients:     cache,
	}
}

func (cc *ClientCache) Get(model, apiKey string) (*Client, error) {
	key := model + "\x00" + apiKey
	if item := cc.clients.Get(key); item != nil {
		return item.Value(), nil
	}
	client, err := NewClient(ClientConfig{
		BaseURL:     cc.baseURL,
		APIKey:      apiKey,
		Model:       model,
		Temperature: cc.temperature,
		Timeout:     cc.timeout,
	})
	if err != nil {
		return nil, err
	}
	cc.clients.Set(key, client, ttlcache.DefaultTTL)
	return client, nil
}

func (cc *ClientCache) Stop() {
	cc.clients.Stop()
}
