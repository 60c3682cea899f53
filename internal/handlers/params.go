package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// pathID extracts the named numeric path variable from the request
func pathID(req *http.Request, name string) (uint, error) {
	raw := mux.Vars(req)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
