package cloudbalance

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type baseClient struct {
	apiAddress string
	tokens     TokenSource
	httpClient *http.Client
}

func newBaseClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) *baseClient {
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &baseClient{
		apiAddress: strings.TrimSuffix(apiAddress, "/"),
		tokens:     tokens,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: allowInsecure, // nolint: gosec
				},
			},
		},
	}
}

func (b *baseClient) executeAPIRequest(
	ctx context.Context,
	apiReq apiRequest,
) error {
	resp, err := b.submitAPIRequest(ctx, apiReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ErrNetwork{Reason: "error reading response body", cause: err}
	}

	if apiReq.raw {
		if apiReq.respObj == nil {
			return nil
		}
		if err := json.Unmarshal(respBodyBytes, apiReq.respObj); err != nil {
			return &ErrMalformedResponse{
				Reason: "error unmarshaling response body",
				cause:  err,
			}
		}
		return nil
	}

	if len(bytes.TrimSpace(respBodyBytes)) == 0 && apiReq.respObj == nil {
		return nil
	}
	envelope := APIResponse{}
	if err := json.Unmarshal(respBodyBytes, &envelope); err != nil {
		return &ErrMalformedResponse{
			Reason: "error unmarshaling response envelope",
			cause:  err,
		}
	}
	if !envelope.Success {
		return &ErrServer{StatusCode: resp.StatusCode, Reason: envelope.Message}
	}
	if apiReq.respMsg != nil {
		*apiReq.respMsg = envelope.Message
	}
	if apiReq.respObj == nil {
		return nil
	}
	if !envelope.hasData() {
		return &ErrMalformedResponse{Reason: "response envelope carries no data"}
	}
	if err := json.Unmarshal(envelope.Data, apiReq.respObj); err != nil {
		return &ErrMalformedResponse{
			Reason: "error unmarshaling response data",
			cause:  err,
		}
	}
	return nil
}

func (b *baseClient) submitAPIRequest(
	ctx context.Context,
	apiReq apiRequest,
) (*http.Response, error) {
	var reqBodyReader io.Reader
	if apiReq.reqBodyObj != nil {
		switch rb := apiReq.reqBodyObj.(type) {
		case []byte:
			reqBodyReader = bytes.NewBuffer(rb)
		default:
			reqBodyBytes, err := json.Marshal(apiReq.reqBodyObj)
			if err != nil {
				return nil, errors.Wrap(err, "error marshaling request body")
			}
			reqBodyReader = bytes.NewBuffer(reqBodyBytes)
		}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		apiReq.method,
		fmt.Sprintf("%s/%s", b.apiAddress, apiReq.path),
		reqBodyReader,
	)
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"error creating request %s %s",
			apiReq.method,
			apiReq.path,
		)
	}
	if len(apiReq.queryParams) > 0 {
		q := req.URL.Query()
		for k, v := range apiReq.queryParams {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if reqBodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range apiReq.headers {
		req.Header.Set(k, v)
	}
	if !apiReq.anonymous {
		token := apiReq.bearerToken
		if token == "" {
			token = b.tokens.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &ErrNetwork{
			Reason: fmt.Sprintf("error invoking %s %s", apiReq.method, apiReq.path),
			cause:  err,
		}
	}

	successCode := apiReq.successCode
	if successCode == 0 {
		successCode = http.StatusOK
	}
	if resp.StatusCode == successCode {
		return resp, nil
	}
	defer resp.Body.Close()

	// HTTP Response code hints at what sort of error might be in the body
	// of the response
	var apiErr error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr = &ErrAuthentication{}
	case http.StatusForbidden:
		apiErr = &ErrAuthorization{}
	case http.StatusBadRequest:
		apiErr = &ErrBadRequest{}
	case http.StatusNotFound:
		apiErr = &ErrNotFound{}
	case http.StatusConflict:
		apiErr = &ErrConflict{}
	case http.StatusInternalServerError:
		apiErr = &ErrInternalServer{}
	default:
		apiErr = &ErrServer{StatusCode: resp.StatusCode}
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apiErr
	}
	// A body that isn't an envelope still leaves us with a typed error; it just
	// lacks the server's explanation.
	_ = json.Unmarshal(bodyBytes, apiErr)
	return nil, apiErr
}
