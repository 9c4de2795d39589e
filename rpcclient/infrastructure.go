// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/go-socks/socks"
	"github.com/gorilla/websocket"

	"github.com/rngsource/rngclient/rngjson"
)

const (
	// sendBufferSize is the number of elements the websocket send channel
	// can queue before blocking.
	sendBufferSize = 50

	// defaultWSEndpoint is the websocket endpoint used when the config
	// does not specify one.
	defaultWSEndpoint = "ws"

	// defaultPostEndpoint is the HTTP POST endpoint used when the config
	// does not specify one.
	defaultPostEndpoint = "json-rpc/2/invoke"
)

// jsonRequest holds information about a json request that is used to
// properly detect, interpret, and deliver a reply to it.
type jsonRequest struct {
	id             uint64
	method         string
	marshalledJSON []byte
	responseChan   chan *response
}

// response is the raw bytes of a JSON-RPC result, or the error if the
// response error object was non-null.
type response struct {
	result json.RawMessage
	err    error
}

// ConnectConfig describes the connection configuration parameters for the
// client.
type ConnectConfig struct {
	// Host is the IP address and port of the RPC server you want to
	// connect to.
	Host string

	// Endpoint is the service endpoint appended to the host to form the
	// request URL.  It defaults to "json-rpc/2/invoke" in HTTP POST mode
	// and "ws" in websocket mode.
	Endpoint string

	// APIKey identifies the caller to the service and is included in the
	// parameters of every request that consumes the key's allowances.
	APIKey string

	// DisableTLS specifies whether transport layer security should be
	// disabled.
	DisableTLS bool

	// Certificates are the bytes for a PEM-encoded certificate chain used
	// for the TLS connection.  It has no effect if the DisableTLS
	// parameter is true.
	Certificates []byte

	// Proxy specifies to connect through a SOCKS 5 proxy server.  It may
	// be an empty string if a proxy is not required.
	Proxy string

	// ProxyUser is an optional username to use for the proxy server if it
	// requires authentication.  It has no effect if the Proxy parameter
	// is not set.
	ProxyUser string

	// ProxyPass is an optional password to use for the proxy server if it
	// requires authentication.  It has no effect if the Proxy parameter
	// is not set.
	ProxyPass string

	// HTTPPostMode instructs the client to run using multiple independent
	// connections issuing HTTP POST requests instead of using the default
	// of websockets.
	HTTPPostMode bool
}

// Client represents a JSON-RPC client for the rngsource service.  A single
// client may be used from multiple goroutines concurrently.
type Client struct {
	// id is the next request id to use.  It must only be accessed
	// atomically.
	id atomic.Uint64

	// config holds the connection configuration associated with this
	// client.
	config *ConnectConfig

	// httpClient is the underlying HTTP client to use when running in
	// HTTP POST mode.
	httpClient *http.Client

	// wsConn is the underlying websocket connection when not in HTTP POST
	// mode.
	wsConn *websocket.Conn

	// requestsMtx protects the in-flight websocket request map.
	requestsMtx sync.Mutex
	requests    map[uint64]*jsonRequest

	// sendChan is the channel over which serialized requests are handed
	// to the websocket out handler.
	sendChan chan []byte

	// notBeforeMtx protects notBefore, the earliest time the next request
	// may be sent per the most recent advisory delay.
	notBeforeMtx sync.Mutex
	notBefore    time.Time

	// requestCount and failureCount track the total number of requests
	// issued and the subset that failed.  They must only be accessed
	// atomically.
	requestCount atomic.Int64
	failureCount atomic.Int64

	shutdownMtx sync.Mutex
	shutdown    chan struct{}

	wg sync.WaitGroup
}

// nextID returns the next id to be used when sending a JSON-RPC message.
func (c *Client) nextID() uint64 {
	return c.id.Add(1)
}

// Requests returns the total number of JSON-RPC requests the client has
// issued since it was created.
func (c *Client) Requests() int64 {
	return c.requestCount.Load()
}

// Failures returns the total number of issued requests that failed, whether
// due to transport errors or errors reported by the service.
func (c *Client) Failures() int64 {
	return c.failureCount.Load()
}

// noteAdvisoryDelay records the advisory delay reported in a response so
// subsequent requests are gated until it elapses.  A delay that ends before
// the currently recorded one is ignored.
func (c *Client) noteAdvisoryDelay(millis int64) {
	if millis <= 0 {
		return
	}
	notBefore := time.Now().Add(time.Duration(millis) * time.Millisecond)

	c.notBeforeMtx.Lock()
	if notBefore.After(c.notBefore) {
		c.notBefore = notBefore
	}
	c.notBeforeMtx.Unlock()
}

// waitAdvisoryDelay blocks until any previously reported advisory delay has
// elapsed, the provided context is canceled, or the client shuts down.
func (c *Client) waitAdvisoryDelay(ctx context.Context) error {
	c.notBeforeMtx.Lock()
	wait := time.Until(c.notBefore)
	c.notBeforeMtx.Unlock()
	if wait <= 0 {
		return nil
	}

	log.Debugf("Honoring advisory delay of %v before next request", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.shutdown:
		return makeError(ErrClientShutdown, "the client has been shutdown")
	}
}

// call issues the provided method with the provided params over whichever
// transport the client is configured for and returns the raw result.  It
// honors any outstanding advisory delay before sending and records the
// request in the client's usage counters.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := c.waitAdvisoryDelay(ctx); err != nil {
		return nil, err
	}

	id := c.nextID()
	marshalledJSON, err := rngjson.MarshalRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	c.requestCount.Add(1)
	jReq := &jsonRequest{
		id:             id,
		method:         method,
		marshalledJSON: marshalledJSON,
		responseChan:   make(chan *response, 1),
	}

	var result json.RawMessage
	if c.config.HTTPPostMode {
		result, err = c.sendPost(ctx, jReq)
	} else {
		result, err = c.sendWS(ctx, jReq)
	}
	if err != nil {
		c.failureCount.Add(1)
		return nil, mapRPCError(err)
	}
	return result, nil
}

// sendPost issues the request as an HTTP POST to the configured endpoint and
// parses the reply.
func (c *Client) sendPost(ctx context.Context, jReq *jsonRequest) (json.RawMessage, error) {
	protocol := "https"
	if c.config.DisableTLS {
		protocol = "http"
	}
	url := fmt.Sprintf("%s://%s/%s", protocol, c.config.Host,
		c.config.Endpoint)

	bodyReader := bytes.NewReader(jReq.marshalledJSON)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		bodyReader)
	if err != nil {
		return nil, err
	}
	httpReq.Close = true
	httpReq.Header.Set("Content-Type", "application/json")

	log.Tracef("Sending command [%s] with id %d", jReq.method, jReq.id)
	httpResponse, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	respBytes, err := io.ReadAll(httpResponse.Body)
	httpResponse.Body.Close()
	if err != nil {
		return nil, err
	}
	if httpResponse.StatusCode != http.StatusOK {
		str := fmt.Sprintf("status code %d, response: %q",
			httpResponse.StatusCode, respBytes)
		return nil, makeError(ErrStatusCode, str)
	}

	return rngjson.ParseResponse(respBytes, jReq.id)
}

// sendWS queues the request for delivery over the websocket connection and
// waits for the matching response.
func (c *Client) sendWS(ctx context.Context, jReq *jsonRequest) (json.RawMessage, error) {
	c.requestsMtx.Lock()
	c.requests[jReq.id] = jReq
	c.requestsMtx.Unlock()

	log.Tracef("Sending command [%s] with id %d", jReq.method, jReq.id)
	select {
	case c.sendChan <- jReq.marshalledJSON:
	case <-ctx.Done():
		c.removeRequest(jReq.id)
		return nil, ctx.Err()
	case <-c.shutdown:
		c.removeRequest(jReq.id)
		return nil, makeError(ErrClientShutdown,
			"the client has been shutdown")
	}

	select {
	case resp := <-jReq.responseChan:
		return resp.result, resp.err
	case <-ctx.Done():
		c.removeRequest(jReq.id)
		return nil, ctx.Err()
	case <-c.shutdown:
		return nil, makeError(ErrClientShutdown,
			"the client has been shutdown")
	}
}

// removeRequest deletes and returns the in-flight request with the provided
// id, if any.
func (c *Client) removeRequest(id uint64) *jsonRequest {
	c.requestsMtx.Lock()
	jReq := c.requests[id]
	delete(c.requests, id)
	c.requestsMtx.Unlock()
	return jReq
}

// failAllRequests delivers the provided error to every in-flight websocket
// request.  It is invoked when the connection is lost or the client shuts
// down.
func (c *Client) failAllRequests(err error) {
	c.requestsMtx.Lock()
	pending := c.requests
	c.requests = make(map[uint64]*jsonRequest)
	c.requestsMtx.Unlock()

	for _, jReq := range pending {
		jReq.responseChan <- &response{err: err}
	}
}

// handleMessage interprets a single message received over the websocket
// connection and delivers it to the request that is waiting on it.
func (c *Client) handleMessage(msg []byte) {
	var resp rngjson.Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		log.Warnf("Unable to unmarshal inbound message: %v", err)
		return
	}
	if resp.ID == nil {
		log.Warnf("Received response with no id -- ignoring")
		return
	}

	jReq := c.removeRequest(*resp.ID)
	if jReq == nil {
		log.Warnf("Received unexpected reply with id %d -- ignoring",
			*resp.ID)
		return
	}
	log.Tracef("Received response for command [%s] with id %d", jReq.method,
		jReq.id)

	switch {
	case resp.Error != nil:
		jReq.responseChan <- &response{err: resp.Error}
	case len(resp.Result) == 0:
		jReq.responseChan <- &response{err: makeError(ErrInvalidResult,
			"response carries neither a result nor an error")}
	default:
		jReq.responseChan <- &response{result: resp.Result}
	}
}

// wsInHandler handles all incoming messages for the websocket connection.
// It must be run as a goroutine.
func (c *Client) wsInHandler() {
out:
	for {
		// Break out of the loop once the shutdown channel has been
		// closed.  Use a non-blocking select here so we fall through
		// otherwise.
		select {
		case <-c.shutdown:
			break out
		default:
		}

		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			if !c.isShutdown() {
				log.Errorf("Websocket receive error from %s: %v",
					c.config.Host, err)
			}
			break out
		}
		c.handleMessage(msg)
	}

	c.failAllRequests(makeError(ErrClientShutdown,
		"the websocket connection has been lost"))
	c.wg.Done()
	log.Tracef("RPC client input handler done for %s", c.config.Host)
}

// wsOutHandler handles all outgoing messages for the websocket connection.
// It uses a buffered channel to serialize output messages while allowing the
// sender to continue running asynchronously.  It must be run as a goroutine.
func (c *Client) wsOutHandler() {
out:
	for {
		select {
		case msg := <-c.sendChan:
			err := c.wsConn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				if !c.isShutdown() {
					log.Errorf("Websocket send error to "+
						"%s: %v", c.config.Host, err)
				}
				break out
			}
		case <-c.shutdown:
			break out
		}
	}

	// Drain any channels before exiting so nothing is left waiting around
	// to send.
cleanup:
	for {
		select {
		case <-c.sendChan:
		default:
			break cleanup
		}
	}
	c.wg.Done()
	log.Tracef("RPC client output handler done for %s", c.config.Host)
}

// isShutdown returns whether the client has been shut down.
func (c *Client) isShutdown() bool {
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

// Shutdown shuts down the client by disconnecting any connections associated
// with the client and, in websocket mode, failing all outstanding requests.
// It is safe to call multiple times.
func (c *Client) Shutdown() {
	c.shutdownMtx.Lock()
	defer c.shutdownMtx.Unlock()

	select {
	case <-c.shutdown:
		return
	default:
	}

	log.Tracef("Shutting down RPC client %s", c.config.Host)
	close(c.shutdown)
	if c.wsConn != nil {
		c.wsConn.Close()
	}
}

// WaitForShutdown blocks until the client goroutines are stopped.  It only
// returns after Shutdown has been called.
func (c *Client) WaitForShutdown() {
	c.wg.Wait()
}

// newHTTPClient returns a new http client that is configured according to
// the proxy and TLS settings in the associated connection configuration.
func newHTTPClient(config *ConnectConfig) (*http.Client, error) {
	// Configure proxy if needed.
	var dial func(network, addr string) (net.Conn, error)
	if config.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     config.Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		dial = proxy.Dial
	}

	// Configure TLS if needed.
	var tlsConfig *tls.Config
	if !config.DisableTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if len(config.Certificates) > 0 {
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(config.Certificates)
			tlsConfig.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &http.Transport{
			Dial:            dial,
			TLSClientConfig: tlsConfig,
		},
	}, nil
}

// dial opens a websocket connection using the passed connection
// configuration details.
func dial(config *ConnectConfig) (*websocket.Conn, error) {
	// Setup TLS if not disabled.
	var tlsConfig *tls.Config
	scheme := "ws"
	if !config.DisableTLS {
		scheme = "wss"
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if len(config.Certificates) > 0 {
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(config.Certificates)
			tlsConfig.RootCAs = pool
		}
	}

	dialer := websocket.Dialer{TLSClientConfig: tlsConfig}
	if config.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     config.Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		dialer.NetDial = proxy.Dial
	}

	url := fmt.Sprintf("%s://%s/%s", scheme, config.Host, config.Endpoint)
	wsConn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		if err != websocket.ErrBadHandshake || resp == nil {
			return nil, err
		}
		return nil, fmt.Errorf("connection to %s rejected: %s", url,
			resp.Status)
	}
	return wsConn, nil
}

// New creates a new RPC client based on the provided connection
// configuration details.  In websocket mode the connection is established
// immediately and the handler goroutines are started; in HTTP POST mode no
// connection is made until a request is issued.
func New(config *ConnectConfig) (*Client, error) {
	// Copy the passed config so the caller is free to modify it after the
	// client is created without affecting the client.
	configCopy := *config
	config = &configCopy
	if config.Endpoint == "" {
		if config.HTTPPostMode {
			config.Endpoint = defaultPostEndpoint
		} else {
			config.Endpoint = defaultWSEndpoint
		}
	}

	client := &Client{
		config:   config,
		requests: make(map[uint64]*jsonRequest),
		sendChan: make(chan []byte, sendBufferSize),
		shutdown: make(chan struct{}),
	}

	if config.HTTPPostMode {
		httpClient, err := newHTTPClient(config)
		if err != nil {
			return nil, err
		}
		client.httpClient = httpClient
		return client, nil
	}

	wsConn, err := dial(config)
	if err != nil {
		return nil, err
	}
	log.Infof("Established connection to RPC server %s", config.Host)
	client.wsConn = wsConn
	client.wg.Add(2)
	go client.wsInHandler()
	go client.wsOutHandler()
	return client, nil
}
