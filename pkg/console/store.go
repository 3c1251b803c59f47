// Package console implements the client side of the administration console:
// a generic CRUD controller shared by every reference-data screen, the
// assignment workflow, and CSV export with a local fallback. Controllers
// hold a cached copy of server state and refresh it after every successful
// mutation; they never patch the cache optimistically.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Endpoints names the four routes of one entity. Update and Delete are
// templates containing an ":id" placeholder substituted at call time.
type Endpoints struct {
	List   string
	Create string
	Update string
	Delete string
}

// ReferenceEndpoints builds the uniform endpoint set for an entity segment.
func ReferenceEndpoints(entity string) Endpoints {
	return Endpoints{
		List:   "/" + entity + "/list",
		Create: "/" + entity + "/create",
		Update: "/" + entity + "/update/:id",
		Delete: "/" + entity + "/delete/:id",
	}
}

func expandID(template string, id int64) string {
	return strings.ReplaceAll(template, ":id", strconv.FormatInt(id, 10))
}

// APIError is the backend's structured error envelope.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Status  int         `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TransportError wraps network-level failures so callers can tell them from
// structured backend rejections.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Client is a thin HTTP client for the REST contract shared by every store.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// NewClient builds a client with a default HTTP client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postRaw posts a JSON body and returns the raw response bytes with the
// response header, for the export download path.
func (c *Client) postRaw(ctx context.Context, path string, body interface{}) ([]byte, http.Header, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.Header, decodeAPIError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.Header, nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, &TransportError{Err: err}
	}
	return payload, resp.Header, nil
}

func decodeAPIError(resp *http.Response) error {
	var apiErr APIError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Code == "" {
		apiErr = APIError{Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: strings.TrimSpace(string(data))}
	}
	apiErr.Status = resp.StatusCode
	return &apiErr
}

// deleteResponse is the body of a successful DELETE.
type deleteResponse struct {
	Success bool `json:"success"`
}

// Store is a typed view over the four endpoints of one entity.
type Store[T any] struct {
	client    *Client
	endpoints Endpoints
}

// NewStore builds a store for one entity.
func NewStore[T any](client *Client, endpoints Endpoints) *Store[T] {
	return &Store[T]{client: client, endpoints: endpoints}
}

// List fetches the entity collection, optionally narrowed by query params.
func (s *Store[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var items []T
	if err := s.client.do(ctx, http.MethodGet, s.endpoints.List, query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// listPageSize matches the server's maximum page size.
const listPageSize = 500

// ListAll pages through the collection until a short page comes back. The
// server defaults to 50 rows per request, so callers that cache the whole
// list must page explicitly or they silently lose row 51 onward.
func (s *Store[T]) ListAll(ctx context.Context, query url.Values) ([]T, error) {
	var all []T
	for offset := 0; ; offset += listPageSize {
		page := url.Values{}
		for k, v := range query {
			page[k] = v
		}
		page.Set("limit", strconv.Itoa(listPageSize))
		page.Set("offset", strconv.Itoa(offset))

		var items []T
		if err := s.client.do(ctx, http.MethodGet, s.endpoints.List, page, nil, &items); err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < listPageSize {
			return all, nil
		}
	}
}

// Create posts the item and returns it with the server-assigned id.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	if err := s.client.do(ctx, http.MethodPost, s.endpoints.Create, nil, item, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Update puts the item at its id and returns the updated record.
func (s *Store[T]) Update(ctx context.Context, id int64, item T) (T, error) {
	var out T
	if err := s.client.do(ctx, http.MethodPut, expandID(s.endpoints.Update, id), nil, item, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Delete removes the item and checks the {success:true} acknowledgment.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	var out deleteResponse
	if err := s.client.do(ctx, http.MethodDelete, expandID(s.endpoints.Delete, id), nil, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New("delete not acknowledged")
	}
	return nil
}
