package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

// coilWriteRequest is the PUT /api/v1/modbus/coils body. Exactly one of
// Value and Values is set.
type coilWriteRequest struct {
	Host    string `json:"host"`
	Port    uint16 `json:"port"`
	UnitID  uint8  `json:"unitId"`
	Address uint16 `json:"address"`
	Value   *bool  `json:"value,omitempty"`
	Values  []bool `json:"values,omitempty"`
}

// handleModbusRead proxies a read of one memory space.
//
// Query: host, port, unitId, address, length.
func (s *Server) handleModbusRead(w http.ResponseWriter, r *http.Request) {
	if s.modbus == nil {
		writeUnavailable(w, "modbus gateway not configured")
		return
	}

	space, err := modbus.ParseSpace(chi.URLParam(r, "space"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	q := r.URL.Query()
	conn, err := connectionFromQuery(q.Get("host"), q.Get("port"), q.Get("unitId"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	address, err := parseUint16("address", q.Get("address"), false)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	length, err := parseUint16("length", q.Get("length"), true)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	reading, err := s.modbus.Read(r.Context(), space, address, length, conn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// handleWriteCoils proxies a single or multiple coil write.
func (s *Server) handleWriteCoils(w http.ResponseWriter, r *http.Request) {
	if s.modbus == nil {
		writeUnavailable(w, "modbus gateway not configured")
		return
	}

	var req coilWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if (req.Value == nil) == (len(req.Values) == 0) {
		writeBadRequest(w, "exactly one of value or values is required")
		return
	}

	conn := modbus.Connection{Host: req.Host, Port: req.Port, UnitID: req.UnitID}

	var (
		res *modbus.WriteResult
		err error
	)
	if req.Value != nil {
		res, err = s.modbus.WriteCoil(r.Context(), req.Address, *req.Value, conn)
	} else {
		res, err = s.modbus.WriteCoils(r.Context(), req.Address, req.Values, conn)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleModbusHealth reports the backend's session state for one endpoint.
func (s *Server) handleModbusHealth(w http.ResponseWriter, r *http.Request) {
	if s.modbus == nil {
		writeUnavailable(w, "modbus gateway not configured")
		return
	}

	q := r.URL.Query()
	conn, err := connectionFromQuery(q.Get("host"), q.Get("port"), q.Get("unitId"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	h, err := s.modbus.Health(r.Context(), conn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleNormalizeCategory migrates a stored category configuration to
// explicit points and returns the windows the UI should read.
func (s *Server) handleNormalizeCategory(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}

	cfg, err := modbus.NormalizeCategoryConfig(raw)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config":  cfg,
		"windows": cfg.ReadWindows(),
	})
}

// connectionFromQuery parses the device connection carried in a query
// string. A missing unitId means unit 0.
func connectionFromQuery(host, port, unitID string) (modbus.Connection, error) {
	if host == "" {
		return modbus.Connection{}, apiclient.NewBadRequest("host is required")
	}
	p, err := parseUint16("port", port, true)
	if err != nil {
		return modbus.Connection{}, err
	}
	var unit uint64
	if unitID != "" {
		unit, err = strconv.ParseUint(unitID, 10, 8)
		if err != nil {
			return modbus.Connection{}, apiclient.NewBadRequest("unitId must be 0-255")
		}
	}
	return modbus.Connection{Host: host, Port: p, UnitID: uint8(unit)}, nil
}

// parseUint16 parses a decimal query value.
func parseUint16(name, v string, required bool) (uint16, error) {
	if v == "" {
		if required {
			return 0, apiclient.NewBadRequest("%s is required", name)
		}
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, apiclient.NewBadRequest("%s out of range", name)
		}
		return 0, apiclient.NewBadRequest("%s must be a number", name)
	}
	return uint16(n), nil
}
