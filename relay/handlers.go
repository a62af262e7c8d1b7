package relay

import (
	"encoding/json"
	"fmt"

	"github.com/feifeihai120/blank-socket/logger"
	"github.com/feifeihai120/blank-socket/protocol"
)

// Each handler runs in its calling session's read goroutine and takes the
// server state mutex for the whole registry-read, mutate, broadcast
// sequence, so commands from different connections are handled one at a
// time and the presenter check-then-set stays atomic.

// handleLogin authenticates a session. A login with a missing field or an
// identity already present in the room is rejected with a failure ACK and
// leaves the session unauthenticated. On success the session joins the
// registry, the room gets a refreshed member list, and the new member is
// told the room's current share state (plus the cached last share frame
// when a presenter is active).
func (srv *Server) handleLogin(s *Session, raw json.RawMessage) {
	var data protocol.LoginData
	if err := json.Unmarshal(raw, &data); err != nil || data.ID == "" || data.Name == "" || data.RoomID == "" {
		srv.dispatcher.AckFail(s, protocol.EventLogin, "missing required field")
		return
	}

	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	if s.currentState() == stateAuthenticated {
		srv.dispatcher.AckFail(s, protocol.EventLogin, "already logged in")
		return
	}

	if srv.registry.FindByIdentity(data.ID, data.RoomID) != nil {
		srv.dispatcher.AckFail(s, protocol.EventLogin, "identity already in room")
		return
	}

	s.authenticate(data.ID, data.Name, data.RoomID)
	if err := srv.registry.Add(s); err != nil {
		s.resetAuth()
		srv.dispatcher.AckFail(s, protocol.EventLogin, "identity already in room")
		return
	}

	s.log.Info("client logged in",
		logger.Field{Key: "clientId", Value: data.ID},
		logger.Field{Key: "roomId", Value: data.RoomID},
		logger.Field{Key: "name", Value: data.Name})

	srv.dispatcher.AckOK(s, protocol.EventLogin)

	members := srv.registry.ListByRoom(data.RoomID)
	srv.dispatcher.Broadcast(members, protocol.EventClientList, clientInfos(members))

	srv.sendShareState(s, data.RoomID)
}

// sendShareState tells a freshly logged-in member whether its room has an
// active presenter, then replays the cached last share frame if one exists.
// Caller holds the state mutex.
func (srv *Server) sendShareState(s *Session, roomID string) {
	master := srv.registry.FindPresenter(roomID)

	state := protocol.ShareStateIdle
	if master != nil {
		state = protocol.ShareStateActive
	}
	srv.dispatcher.Send(s, protocol.EventShareState, protocol.ShareStateData{State: state})

	if master == nil || srv.snapshots == nil {
		return
	}

	data, found, err := srv.snapshots.Get(srv.ctx, roomID)
	if err != nil {
		srv.log.Warn("share snapshot lookup failed",
			logger.Field{Key: "roomId", Value: roomID},
			logger.Field{Key: "error", Value: err})
		return
	}
	if found {
		srv.dispatcher.Send(s, protocol.EventSendShare, protocol.SharePush{Data: data})
	}
}

// handleSetMaster claims the presenter role. It succeeds only while the room
// has no presenter; the whole room (claimer included) then receives
// startShare.
func (srv *Server) handleSetMaster(s *Session) {
	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	roomID := s.RoomID()
	if master := srv.registry.FindPresenter(roomID); master != nil {
		srv.dispatcher.AckFail(s, protocol.EventSetMaster,
			fmt.Sprintf("%s already presents", master.ClientID()))
		return
	}

	s.setPresenter(true)
	s.log.Info("presenter claimed", logger.Field{Key: "roomId", Value: roomID})

	srv.dispatcher.Broadcast(srv.registry.ListByRoom(roomID), protocol.EventStartShare,
		protocol.ShareInfo{MasterID: s.ClientID(), MasterName: s.DisplayName()})
	srv.dispatcher.AckOK(s, protocol.EventSetMaster)
}

// handleCancelMaster releases the presenter role. Only the room's current
// presenter may release it; the room then receives endShare and the share
// snapshot is dropped.
func (srv *Server) handleCancelMaster(s *Session) {
	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	if !s.IsPresenter() {
		srv.dispatcher.AckFail(s, protocol.EventCancelMaster, "not presenter")
		return
	}

	roomID := s.RoomID()
	s.setPresenter(false)
	s.log.Info("presenter released", logger.Field{Key: "roomId", Value: roomID})

	srv.dropSnapshot(roomID)
	srv.dispatcher.Broadcast(srv.registry.ListByRoom(roomID), protocol.EventEndShare,
		protocol.ShareInfo{MasterID: s.ClientID(), MasterName: s.DisplayName()})
	srv.dispatcher.AckOK(s, protocol.EventCancelMaster)
}

// handleSendShare fans the presenter's payload out to the whole room,
// presenter included. Non-presenters are rejected without any broadcast.
// A receiverIds hint in the request is accepted but never filters delivery.
func (srv *Server) handleSendShare(s *Session, raw json.RawMessage) {
	var data protocol.SendShareData
	if err := json.Unmarshal(raw, &data); err != nil {
		srv.dispatcher.AckFail(s, protocol.EventSendShare, "invalid payload")
		return
	}

	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	if !s.IsPresenter() {
		srv.dispatcher.AckFail(s, protocol.EventSendShare, "not presenter, cannot send")
		return
	}

	if len(data.ReceiverIDs) > 0 {
		s.log.Debug("receiverIds ignored, delivery is room-wide",
			logger.Field{Key: "count", Value: len(data.ReceiverIDs)})
	}

	roomID := s.RoomID()
	srv.dispatcher.Broadcast(srv.registry.ListByRoom(roomID), protocol.EventSendShare,
		protocol.SharePush{Data: data.Data})
	srv.dispatcher.AckOK(s, protocol.EventSendShare)

	if srv.snapshots != nil {
		if err := srv.snapshots.Put(srv.ctx, roomID, data.Data); err != nil {
			srv.log.Warn("share snapshot store failed",
				logger.Field{Key: "roomId", Value: roomID},
				logger.Field{Key: "error", Value: err})
		}
	}
}

// handleGetClientList unicasts a member list back to the caller: the whole
// server when no room is given, otherwise one room. An ACK always follows.
func (srv *Server) handleGetClientList(s *Session, raw json.RawMessage) {
	var data protocol.GetClientListData
	// A missing or malformed payload means "list everything", matching the
	// tolerance of the original protocol.
	_ = json.Unmarshal(raw, &data)

	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	var members []*Session
	if data.RoomID == "" {
		members = srv.registry.ListAll()
	} else {
		members = srv.registry.ListByRoom(data.RoomID)
	}

	srv.dispatcher.Send(s, protocol.EventClientList, clientInfos(members))
	srv.dispatcher.AckOK(s, protocol.EventGetClientList)
}

// handleDisconnect tears down session state when its connection ends. An
// authenticated session leaves the registry and its room gets a refreshed
// member list; a departing presenter additionally triggers endShare so the
// room does not keep believing a share is active.
func (srv *Server) handleDisconnect(s *Session, wasAuthenticated bool) {
	srv.sessions.Delete(s.ID())

	if !wasAuthenticated {
		s.log.Debug("unauthenticated session closed")
		return
	}

	srv.stateMu.Lock()
	defer srv.stateMu.Unlock()

	roomID := s.RoomID()
	wasPresenter := s.IsPresenter()
	srv.registry.Remove(s)

	s.log.Info("client disconnected",
		logger.Field{Key: "clientId", Value: s.ClientID()},
		logger.Field{Key: "roomId", Value: roomID},
		logger.Field{Key: "presenter", Value: wasPresenter})

	if wasPresenter {
		s.setPresenter(false)
		srv.dropSnapshot(roomID)
		srv.dispatcher.Broadcast(srv.registry.ListByRoom(roomID), protocol.EventEndShare,
			protocol.ShareInfo{MasterID: s.ClientID(), MasterName: s.DisplayName()})
	}

	members := srv.registry.ListByRoom(roomID)
	srv.dispatcher.Broadcast(members, protocol.EventClientList, clientInfos(members))
}

func (srv *Server) dropSnapshot(roomID string) {
	if srv.snapshots == nil {
		return
	}
	if err := srv.snapshots.Delete(srv.ctx, roomID); err != nil {
		srv.log.Warn("share snapshot delete failed",
			logger.Field{Key: "roomId", Value: roomID},
			logger.Field{Key: "error", Value: err})
	}
}

func clientInfos(members []*Session) []protocol.ClientInfo {
	infos := make([]protocol.ClientInfo, 0, len(members))
	for _, m := range members {
		infos = append(infos, m.Info())
	}

	return infos
}
