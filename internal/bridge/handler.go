package bridge

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/health"
	"github.com/displayhotkeys/dhk/internal/ipc"
	"github.com/displayhotkeys/dhk/internal/logging"
)

// dispatch answers one request. Every request gets exactly one reply: a
// result envelope or an error envelope with the same ID.
func (s *Server) dispatch(p *peer, env *ipc.Envelope) {
	result, err := s.handle(p, env)
	if err != nil {
		f := failureFor(err)
		log.Debug("request failed", logging.KeyRequestID, env.ID, "type", env.Type, logging.KeyCode, f.Code, logging.KeyError, err.Error())
		p.conn.SendFailure(env.ID, env.Type, f)
		return
	}
	if err := p.conn.SendTyped(env.ID, ipc.TypeResult, result); err != nil {
		log.Warn("failed to send result", logging.KeyRequestID, env.ID, "type", env.Type, logging.KeyError, err.Error())
	}
}

type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func decode[T any](env *ipc.Envelope) (T, error) {
	v, err := ipc.UnmarshalPayload[T](env)
	if err != nil {
		return v, badRequest{err}
	}
	return v, nil
}

func (s *Server) handle(p *peer, env *ipc.Envelope) (any, error) {
	svc := s.service
	switch env.Type {
	case ipc.TypePing:
		return struct{}{}, nil

	case ipc.TypeStatus:
		return s.status(), nil

	case ipc.TypeNumDisplays:
		n, err := svc.NumConnectedDisplays()
		return ipc.CountResult{Count: n}, err

	case ipc.TypeDisplayIDs:
		ids, err := svc.DisplayIDs()
		return ipc.IDsResult{IDs: ids}, err

	case ipc.TypeDisplayModes:
		req, err := decode[ipc.DisplayRequest](env)
		if err != nil {
			return nil, err
		}
		modes, err := svc.DisplayModes(req.DisplayID)
		return ipc.ModesResult{Modes: modes}, err

	case ipc.TypeDisplayOrientation:
		req, err := decode[ipc.OrientationRequest](env)
		if err != nil {
			return nil, err
		}
		r, err := svc.DisplayOrientation(req.PathIndex)
		return ipc.OrientationResult{Rotation: r}, err

	case ipc.TypeDPIScale:
		req, err := decode[ipc.DisplayRequest](env)
		if err != nil {
			return nil, err
		}
		pct, err := svc.DPIScalePercentage(req.DisplayID)
		return ipc.DPIScaleResult{Percentage: pct}, err

	case ipc.TypeDisplays:
		infos, err := svc.Displays()
		if err != nil {
			return nil, err
		}
		res := ipc.DisplaysResult{Displays: infos}
		if s.names != nil {
			ids := make([]string, len(infos))
			for i, info := range infos {
				ids[i] = info.ID
			}
			res.Names = s.names(ids)
		}
		return res, nil

	case ipc.TypeCatalog:
		entries, err := svc.Catalog()
		return ipc.CatalogResult{Entries: entries}, err

	case ipc.TypeSetDisplay:
		req, err := decode[ipc.SetDisplayRequest](env)
		if err != nil {
			return nil, err
		}
		return struct{}{}, svc.SetDisplay(req.DisplayID, req.Settings)

	case ipc.TypeSetOrientation:
		req, err := decode[ipc.SetOrientationRequest](env)
		if err != nil {
			return nil, err
		}
		return struct{}{}, svc.SetOrientation(req.DisplayID, req.Orientation)

	case ipc.TypeApplySlot:
		if s.slots == nil {
			return nil, fmt.Errorf("bridge: profiles are not loaded")
		}
		req, err := decode[ipc.ApplySlotRequest](env)
		if err != nil {
			return nil, err
		}
		return struct{}{}, s.slots.ApplySlot(req.DisplayID, req.Slot)

	case ipc.TypeSubscribe:
		p.subscribed.Store(true)
		return struct{}{}, nil
	}
	return nil, unknownType{env.Type}
}

func (s *Server) status() ipc.StatusResult {
	r := ipc.StatusResult{Version: s.version, StartedAt: s.started, Connections: s.ConnCount()}
	if s.health != nil {
		r.Health = s.health.Report()
	} else {
		r.Health = health.Report{Status: health.Unknown}
	}
	return r
}

type unknownType struct{ t string }

func (e unknownType) Error() string { return fmt.Sprintf("bridge: unknown message type %q", e.t) }
