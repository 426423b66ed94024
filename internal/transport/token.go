package transport

import (
	"time"

	"github.com/livekit/protocol/auth"
)

// BuildToken mints a LiveKit access token for the caption agent identity.
// User-facing token issuance lives in the conferencing backend; this token
// only lets the agent itself join the room.
func BuildToken(apiKey, apiSecret, roomName, identity, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	at := auth.NewAccessToken(apiKey, apiSecret).
		SetVideoGrant(&auth.VideoGrant{
			RoomJoin: true,
			Room:     roomName,
		}).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(ttl)
	return at.ToJWT()
}
