package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	actionInit     = "init"
	actionComplete = "complete"
)

type initRequest struct {
	Action        string `json:"action"`
	DestinationID string `json:"destination_id"`
	ChunkCount    int    `json:"chunk_count"`
}

type initResponse struct {
	SessionID    string        `json:"session_id"`
	Destinations []Destination `json:"destinations"`
	ObjectID     string        `json:"object_id"`
}

type completeRequest struct {
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
	ObjectID  string `json:"object_id"`
}

// StatusError is a definitive control-plane rejection.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the control plane over a retrying HTTP client.
type Client struct {
	httpClient  *retryablehttp.Client
	initURL     string
	completeURL string
	accessToken string
	logger      log.Logger
}

// NewClient creates a control-plane client. initURL and completeURL may point
// to the same endpoint, requests carry an action discriminator either way.
func NewClient(httpClient *retryablehttp.Client, initURL, completeURL, accessToken string, logger log.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		initURL:     initURL,
		completeURL: completeURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// InitUpload negotiates a session for chunkCount chunks addressed to the
// caller-supplied destination identifier.
func (c *Client) InitUpload(destinationID string, chunkCount int) (Session, error) {
	var response initResponse
	err := c.post(c.initURL, initRequest{
		Action:        actionInit,
		DestinationID: destinationID,
		ChunkCount:    chunkCount,
	}, &response)
	if err != nil {
		return Session{}, err
	}

	return Session{
		ID:           response.SessionID,
		Destinations: response.Destinations,
		ObjectID:     response.ObjectID,
	}, nil
}

// CompleteUpload finalizes a fully transferred session.
func (c *Client) CompleteUpload(session Session) error {
	return c.post(c.completeURL, completeRequest{
		Action:    actionComplete,
		SessionID: session.ID,
		ObjectID:  session.ObjectID,
	}, nil)
}

func (c *Client) post(url string, requestBody interface{}, response interface{}) error {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
	req.Header.Set("Content-type", "application/json")

	dump, err := httputil.DumpRequest(req.Request, true)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Control-plane request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unwrapError(resp)
	}

	if response == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(response)
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: string(errorResp)}
}
