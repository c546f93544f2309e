package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// iceTokenTTL is the lifetime requested for TURN credentials, in seconds.
const iceTokenTTL = 86400

// IceHandler serves the STUN/TURN server descriptors clients need before
// opening a peer connection. The signaling core never reads this blob; it is
// fetched directly by the browser.
type IceHandler struct {
	twilioClient *twilio.RestClient
}

func NewIceHandler(accountSid, authToken string) *IceHandler {
	return &IceHandler{
		twilioClient: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

// GetIceServers creates a short-lived Twilio token and returns its ICE
// server list in the generic {urls, username, credential} shape.
func (h *IceHandler) GetIceServers(w http.ResponseWriter, r *http.Request) {
	ttl := iceTokenTTL
	token, err := h.twilioClient.Api.CreateToken(&twilioApi.CreateTokenParams{
		Ttl: &ttl,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to create Twilio token: %v", err)
		http.Error(w, "Failed to get ICE servers", http.StatusInternalServerError)
		return
	}

	servers := make([]map[string]interface{}, 0)
	if token.IceServers != nil {
		for _, server := range *token.IceServers {
			servers = append(servers, map[string]interface{}{
				"urls":       server.Url,
				"username":   server.Username,
				"credential": server.Credential,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"iceServers": servers,
	})
}
