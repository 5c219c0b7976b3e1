package mockapi

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

type apiRequest struct {
	w                   http.ResponseWriter
	r                   *http.Request
	reqBodySchemaLoader gojsonschema.JSONLoader
	reqBodyObj          interface{}
	endpointLogic       func() (interface{}, error)
	successCode         int
	successMsg          string
	// raw responses are written without the envelope.
	raw bool
}

// messageResponse lets endpoint logic choose the envelope's message at run
// time.
type messageResponse struct {
	message string
	data    interface{}
}

type baseEndpoints struct {
	service *Service
	now     func() time.Time
}

func (b *baseEndpoints) readAndValidateAPIRequestBody(
	w http.ResponseWriter,
	r *http.Request,
	bodySchemaLoader gojsonschema.JSONLoader,
	bodyObj interface{},
) bool {
	defer r.Body.Close()
	bodyBytes, err := ioutil.ReadAll(r.Body)
	if err != nil {
		glog.Error(errors.Wrap(err, "error reading request body"))
		b.writeError(
			w,
			cloudbalance.NewErrBadRequest("Could not read request body."),
		)
		return false
	}
	if bodySchemaLoader != nil {
		var validationResult *gojsonschema.Result
		validationResult, err = gojsonschema.Validate(
			bodySchemaLoader,
			gojsonschema.NewBytesLoader(bodyBytes),
		)
		if err != nil {
			// Most likely the request body wasn't valid JSON.
			b.writeError(
				w,
				cloudbalance.NewErrBadRequest("Could not validate request body."),
			)
			return false
		}
		if !validationResult.Valid() {
			verr := &cloudbalance.ErrBadRequest{
				Reason:  "Validation failed",
				Details: map[string]string{},
			}
			for _, resultErr := range validationResult.Errors() {
				verr.Details[resultErr.Field()] = resultErr.Description()
			}
			b.writeError(w, verr)
			return false
		}
	}
	if bodyObj != nil {
		if err = json.Unmarshal(bodyBytes, bodyObj); err != nil {
			if bodySchemaLoader != nil {
				// The body already passed validation, so this is our problem.
				glog.Error(errors.Wrap(err, "error unmarshaling request body"))
				b.writeError(w, cloudbalance.NewErrInternalServer())
				return false
			}
			b.writeError(
				w,
				cloudbalance.NewErrBadRequest("Malformed request body."),
			)
			return false
		}
	}
	return true
}

func (b *baseEndpoints) serveAPIRequest(apiReq apiRequest) {
	if apiReq.reqBodySchemaLoader != nil || apiReq.reqBodyObj != nil {
		if !b.readAndValidateAPIRequestBody(
			apiReq.w,
			apiReq.r,
			apiReq.reqBodySchemaLoader,
			apiReq.reqBodyObj,
		) {
			return
		}
	}
	respBodyObj, err := apiReq.endpointLogic()
	if err != nil {
		b.writeError(apiReq.w, err)
		return
	}
	successCode := apiReq.successCode
	if successCode == 0 {
		successCode = http.StatusOK
	}
	if apiReq.raw {
		b.writeAPIResponse(apiReq.w, successCode, respBodyObj)
		return
	}
	successMsg := apiReq.successMsg
	if msgResp, ok := respBodyObj.(messageResponse); ok {
		successMsg = msgResp.message
		respBodyObj = msgResp.data
	}
	b.writeEnvelope(apiReq.w, successCode, true, successMsg, respBodyObj)
}

// writeError maps the error to a status code and an enveloped message.
// Errors of unknown type are logged and reported as internal errors.
func (b *baseEndpoints) writeError(w http.ResponseWriter, err error) {
	switch e := errors.Cause(err).(type) {
	case *cloudbalance.ErrAuthentication:
		b.writeEnvelope(w, http.StatusUnauthorized, false, e.Reason, nil)
	case *cloudbalance.ErrAuthorization:
		b.writeEnvelope(w, http.StatusForbidden, false, e.Reason, nil)
	case *cloudbalance.ErrBadRequest:
		var data interface{}
		if len(e.Details) > 0 {
			data = e.Details
		}
		b.writeEnvelope(w, http.StatusBadRequest, false, e.Reason, data)
	case *cloudbalance.ErrNotFound:
		b.writeEnvelope(w, http.StatusNotFound, false, e.Reason, nil)
	case *cloudbalance.ErrConflict:
		b.writeEnvelope(w, http.StatusConflict, false, e.Reason, nil)
	case *cloudbalance.ErrInternalServer:
		b.writeEnvelope(
			w,
			http.StatusInternalServerError,
			false,
			cloudbalance.Message(e),
			nil,
		)
	default:
		glog.Error(err)
		b.writeEnvelope(
			w,
			http.StatusInternalServerError,
			false,
			cloudbalance.NewErrInternalServer().Error(),
			nil,
		)
	}
}

func (b *baseEndpoints) writeEnvelope(
	w http.ResponseWriter,
	statusCode int,
	success bool,
	message string,
	data interface{},
) {
	envelope := struct {
		Success   bool                   `json:"success"`
		Message   string                 `json:"message,omitempty"`
		Data      interface{}            `json:"data"`
		Timestamp cloudbalance.Timestamp `json:"timestamp"`
	}{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: cloudbalance.Timestamp{Time: b.now()},
	}
	b.writeAPIResponse(w, statusCode, envelope)
}

func (b *baseEndpoints) writeAPIResponse(
	w http.ResponseWriter,
	statusCode int,
	response interface{},
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	responseBody, err := json.Marshal(response)
	if err != nil {
		glog.Error(errors.Wrap(err, "error marshaling response body"))
	}
	if _, err := w.Write(responseBody); err != nil {
		glog.Error(errors.Wrap(err, "error writing response body"))
	}
}

// idVar parses a numeric path variable.
func idVar(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		return 0, cloudbalance.NewErrBadRequest("Invalid " + name)
	}
	return id, nil
}
