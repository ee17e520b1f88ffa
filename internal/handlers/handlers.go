package handlers

import (
	"errors"
	"net/http"
	"strconv"
)

var errInvalidID = errors.New("invalid id")

// pathID reads the {id} path segment as a positive integer.
func pathID(r *http.Request) (uint, error) {
	n, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || n <= 0 {
		return 0, errInvalidID
	}
	return uint(n), nil
}
