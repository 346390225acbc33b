package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	recordsdto "notegenius/internal/modules/records/dto"
	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	apperrors "notegenius/internal/platform/errors"
)

// HTTPRemoteStore talks to the records API served by `notegenius serve`.
type HTTPRemoteStore struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPRemoteStore(baseURL string, timeout time.Duration) (*HTTPRemoteStore, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse remote url")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRemoteStore{base: base, client: &http.Client{Timeout: timeout}}, nil
}

var _ trackerout.RemoteSessionStore = (*HTTPRemoteStore)(nil)

func (s *HTTPRemoteStore) FindActive(ctx context.Context, userID string) (domain.Record, bool, error) {
	out := recordsdto.RecordOutput{}
	err := s.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/sessions/active", nil, nil, &out)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, err
	}
	return fromRecordOutput(out), true, nil
}

func (s *HTTPRemoteStore) InsertOrGetActive(ctx context.Context, record domain.Record) (domain.Record, bool, error) {
	out := recordsdto.ClaimOutput{}
	query := url.Values{"claim": []string{"active"}}
	if err := s.do(ctx, http.MethodPost, "/v1/sessions", query, toCreateInput(record), &out); err != nil {
		return domain.Record{}, false, err
	}
	return fromRecordOutput(out.Record), out.Adopted, nil
}

func (s *HTTPRemoteStore) Insert(ctx context.Context, record domain.Record) (string, error) {
	out := recordsdto.RecordOutput{}
	if err := s.do(ctx, http.MethodPost, "/v1/sessions", nil, toCreateInput(record), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (s *HTTPRemoteStore) Update(ctx context.Context, id string, patch domain.Patch) error {
	return s.do(ctx, http.MethodPatch, "/v1/sessions/"+url.PathEscape(id), nil, toUpdateInput(patch), nil)
}

func (s *HTTPRemoteStore) IncrementCounters(ctx context.Context, id string, delta domain.Counters) error {
	return s.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/counters", nil, toCountersInput(delta), nil)
}

func (s *HTTPRemoteStore) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Record, error) {
	outs := []recordsdto.RecordOutput{}
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if err := s.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/sessions", query, nil, &outs); err != nil {
		return nil, err
	}
	records := make([]domain.Record, 0, len(outs))
	for _, out := range outs {
		records = append(records, fromRecordOutput(out))
	}
	return records, nil
}

func (s *HTTPRemoteStore) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := *s.base
	target.Path = s.base.Path + path
	if query != nil {
		target.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func statusError(resp *http.Response) error {
	payload := struct {
		Error string `json:"error"`
	}{}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", apperrors.ErrActiveSessionExists, msg)
	}
	return fmt.Errorf("records api: %s", msg)
}
