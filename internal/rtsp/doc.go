// Package rtsp controls the backend's RTSP-to-HLS restreamer.
//
// The backend answers every /rtsp call with an envelope:
//
//	{"error": false, "data": ..., "message": "...", "timestamp": "..."}
//
// A transport or HTTP failure is classified by the request gateway as
// usual. An envelope with error=true on a 2xx response becomes a
// ServerFault carrying the envelope message.
package rtsp
