package transport

import (
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"clarity-caption-service/internal/observability/logging"
)

// AudioTrack is one subscribed remote audio track delivering RTP packets.
type AudioTrack interface {
	Read(buf []byte) (int, error)
}

// RoomConfig holds the LiveKit connection parameters.
type RoomConfig struct {
	URL       string
	APIKey    string
	APISecret string
	RoomName  string
	Identity  string
	Name      string
	TokenTTL  time.Duration

	// OnAudioTrack is invoked for each subscribed remote audio track.
	// Optional; video tracks never reach it.
	OnAudioTrack func(identity string, track AudioTrack)
	// OnAudioTrackEnded is invoked when a tracked participant's audio
	// goes away, through unsubscribe or disconnect. Optional.
	OnAudioTrackEnded func(identity string)
}

// LiveKitRoom implements RoomSession on a LiveKit room.
type LiveKitRoom struct {
	room *lksdk.Room
	log  zerolog.Logger
}

// remoteAudioTrack adapts the SDK's track read signature to AudioTrack.
type remoteAudioTrack struct {
	t *webrtc.TrackRemote
}

func (r remoteAudioTrack) Read(buf []byte) (int, error) {
	n, _, err := r.t.Read(buf)
	return n, err
}

// Connect mints an access token for the agent identity and joins the
// LiveKit room. Inbound user data packets are delivered to onData with the
// transport-level sender identity; subscribed audio tracks go to the
// config's audio callbacks.
func Connect(cfg RoomConfig, onData func(payload []byte, senderIdentity string)) (*LiveKitRoom, error) {
	token, err := BuildToken(cfg.APIKey, cfg.APISecret, cfg.RoomName, cfg.Identity, cfg.Name, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	roomLog := logging.WithRoom(cfg.RoomName, cfg.Identity)

	room, err := lksdk.ConnectToRoomWithToken(cfg.URL, token, &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket: func(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
				user, ok := data.(*lksdk.UserDataPacket)
				if !ok {
					return
				}
				onData(user.Payload, params.SenderIdentity)
			},
			OnTrackSubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				roomLog.Info().Str("participant", rp.Identity()).Msg("audio track subscribed")
				if cfg.OnAudioTrack != nil {
					cfg.OnAudioTrack(rp.Identity(), remoteAudioTrack{t: track})
				}
			},
			OnTrackUnsubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				roomLog.Info().Str("participant", rp.Identity()).Msg("audio track unsubscribed")
				if cfg.OnAudioTrackEnded != nil {
					cfg.OnAudioTrackEnded(rp.Identity())
				}
			},
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			if cfg.OnAudioTrackEnded != nil {
				cfg.OnAudioTrackEnded(rp.Identity())
			}
		},
		OnDisconnected: func() {
			roomLog.Warn().Msg("disconnected from room")
		},
	})
	if err != nil {
		return nil, err
	}

	roomLog.Info().Msg("connected to room")
	return &LiveKitRoom{room: room, log: roomLog}, nil
}

// LocalIdentity returns our participant identity.
func (r *LiveKitRoom) LocalIdentity() string {
	return r.room.LocalParticipant.Identity()
}

// PublishData broadcasts payload to all current room members.
func (r *LiveKitRoom) PublishData(payload []byte, reliable bool) error {
	return r.room.LocalParticipant.PublishDataPacket(
		lksdk.UserData(payload),
		lksdk.WithDataPublishReliable(reliable),
	)
}

// ParticipantName resolves a display name from the live roster.
func (r *LiveKitRoom) ParticipantName(identity string) (string, bool) {
	for _, p := range r.room.GetRemoteParticipants() {
		if p.Identity() == identity {
			return p.Name(), true
		}
	}
	return "", false
}

// Close leaves the room through the SDK's public disconnect.
func (r *LiveKitRoom) Close() {
	r.log.Info().Msg("leaving room")
	r.room.Disconnect()
}
