package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/maxzerker/bacnet-rpc/gateway"
)

var internalError = &gateway.Failure{Category: gateway.CategoryServices, Cause: "internal-error"}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeFailure(w http.ResponseWriter, status int, f *gateway.Failure) {
	writeJSON(w, status, gateway.Failed(f))
}

// writeResult answers 400 for requests rejected before reaching the network
// and 200 for everything else, device errors included.
func writeResult(w http.ResponseWriter, result gateway.Result) {
	status := http.StatusOK
	if f := result.Failure(); f != nil && f.Malformed() {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func writeDevices(w http.ResponseWriter, devices []gateway.DeviceIdentification, err error) {
	if err != nil {
		writeResult(w, gateway.Failed(err))
		return
	}
	if devices == nil {
		devices = []gateway.DeviceIdentification{}
	}
	writeJSON(w, http.StatusOK, devices)
}
