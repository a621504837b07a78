// Package shared holds request helpers used by every JSON feature.
package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/inputval"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = limits.MaxJSONBody

// Decode reads a JSON body into v and runs its validate tags.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation(fmt.Sprintf("malformed JSON body: %v", err))
	}
	return inputval.Validate(v).Err()
}

// ObjectID parses the chi URL parameter name.
func ObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(name + " must be a valid id")
	}
	return id, nil
}

// OptionalObjectID parses a hex id that may be blank.
func OptionalObjectID(raw, label string) (*primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validation(label + " must be a valid id")
	}
	return &id, nil
}

// QueryBool reads a boolean query parameter. Anything unparsable is false.
func QueryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// Actor returns the signed-in actor, writing a 401 when there is none.
func Actor(w http.ResponseWriter, r *http.Request, log *zap.Logger) (authz.Actor, bool) {
	a, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, log, apperr.Unauthenticated("sign in required"))
		return authz.Actor{}, false
	}
	return a, true
}
