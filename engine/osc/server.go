package osc

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/scintillator/scsynth/engine/comp"
	"github.com/scintillator/scsynth/engine/core"
)

// Server owns a UDP listener and decodes one text command per packet,
// dispatching it to a Dispatcher. Per spec.md §7's Runtime error kind,
// a malformed or failing command is logged with core.LogWarn and the
// server keeps listening; one bad packet never takes the process down.
//
// Wire format: path, then space-separated arguments. List-valued
// arguments are comma-joined with no spaces (e.g. "1,2,3"); named
// key=value pairs use "=" with no surrounding space. Binary payloads
// (stage_image) are base64-encoded in their own argument. This is a
// simplified stand-in for the original's binary liblo/OSC packets,
// chosen because no OSC Go binding appears among the example
// dependencies — see DESIGN.md.
type Server struct {
	conn *net.UDPConn
	d    *Dispatcher

	mu   sync.Mutex
	quit bool
	wg   sync.WaitGroup
}

// Listen binds addr (e.g. "127.0.0.1:57110") and returns a Server ready
// for Serve.
func Listen(addr string, d *Dispatcher) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("osc: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("osc: listen %s: %w", addr, err)
	}
	return &Server{conn: conn, d: d}, nil
}

// Serve reads and dispatches packets until Stop is called. Intended to
// run on its own goroutine.
func (s *Server) Serve() {
	s.wg.Add(1)
	defer s.wg.Done()

	buf := make([]byte, 64*1024)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			s.mu.Lock()
			stopped := s.quit
			s.mu.Unlock()
			if stopped {
				return
			}
			core.LogWarn("osc: read failed: %v", err)
			continue
		}
		packet := string(buf[:n])
		if err := s.dispatch(packet); err != nil {
			core.LogWarn("osc: %v", err)
		}
	}
}

// Stop closes the listening socket and waits for Serve to return.
func (s *Server) Stop() {
	s.mu.Lock()
	s.quit = true
	s.mu.Unlock()
	s.conn.Close()
	s.wg.Wait()
}

func (s *Server) dispatch(packet string) error {
	path, rest := splitFirst(packet)
	switch path {
	case "/d_recv":
		admitted := s.d.DefAdd(rest)
		core.LogInfo("osc: /d_recv admitted %d defs", admitted)
		return nil
	case "/d_free":
		s.d.DefFree(splitList(rest))
		return nil
	case "/s_new":
		return s.dispatchScinthNew(rest)
	case "/n_free":
		s.d.NodeFree(parseIDList(rest))
		return nil
	case "/n_run":
		pairs, err := parseBoolPairs(rest)
		if err != nil {
			return fmt.Errorf("/n_run: %w", err)
		}
		s.d.NodeRun(pairs)
		return nil
	case "/n_set":
		return s.dispatchNodeSet(rest)
	case "/n_order":
		return s.dispatchNodeOrder(rest)
	case "/g_new":
		return s.dispatchGroupNew(rest)
	case "/g_head":
		return s.dispatchGroupSplice(rest, comp.AddToGroupHead)
	case "/g_tail":
		return s.dispatchGroupSplice(rest, comp.AddToGroupTail)
	case "/g_freeAll":
		for _, id := range parseIDList(rest) {
			if err := s.d.GroupFreeAll(id); err != nil {
				core.LogWarn("osc: /g_freeAll %d: %v", id, err)
			}
		}
		return nil
	case "/g_deepFree":
		for _, id := range parseIDList(rest) {
			if err := s.d.GroupDeepFree(id); err != nil {
				core.LogWarn("osc: /g_deepFree %d: %v", id, err)
			}
		}
		return nil
	case "/stage_image":
		return s.dispatchStageImage(rest)
	case "/query_image":
		return s.dispatchQueryImage(rest)
	case "/sync":
		id := strings.TrimSpace(rest)
		s.d.Sync(func() { core.LogInfo("osc: /sync %s complete", id) })
		return nil
	case "/sleep_for":
		return s.dispatchSleepFor(rest)
	case "/screen_shot":
		return s.dispatchScreenShot(rest)
	case "/advance_frame":
		dt, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return fmt.Errorf("/advance_frame: bad dt %q: %w", rest, err)
		}
		s.d.AdvanceFrame(dt, func(frame int) { core.LogInfo("osc: /advance_frame complete, frame %d", frame) })
		return nil
	case "/set_clear_color":
		return s.dispatchSetClearColor(rest)
	default:
		return fmt.Errorf("unknown command %q", path)
	}
}

func (s *Server) dispatchScinthNew(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) < 4 {
		return fmt.Errorf("/s_new: expected defName id addAction targetId [key=val...], got %q", rest)
	}
	defName := fields[0]
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("/s_new: bad id: %w", err)
	}
	action, err := parseAddAction(fields[2])
	if err != nil {
		return fmt.Errorf("/s_new: %w", err)
	}
	targetID, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return fmt.Errorf("/s_new: bad targetId: %w", err)
	}
	params := make(map[string]float32)
	for _, kv := range fields[4:] {
		name, value, err := parseKeyValue(kv)
		if err != nil {
			return fmt.Errorf("/s_new: %w", err)
		}
		params[name] = value
	}
	_, err = s.d.ScinthNew(defName, id, action, targetID, params)
	return err
}

func (s *Server) dispatchNodeSet(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) < 1 {
		return fmt.Errorf("/n_set: missing id")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("/n_set: bad id: %w", err)
	}
	named := make(map[string]float32)
	indexed := make(map[int]float32)
	for _, kv := range fields[1:] {
		key, value, err := parseKeyValue(kv)
		if err != nil {
			return fmt.Errorf("/n_set: %w", err)
		}
		if idx, err := strconv.Atoi(key); err == nil {
			indexed[idx] = value
		} else {
			named[key] = value
		}
	}
	return s.d.NodeSet(id, named, indexed)
}

func (s *Server) dispatchNodeOrder(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return fmt.Errorf("/n_order: expected addAction targetId ids..., got %q", rest)
	}
	action, err := parseAddAction(fields[0])
	if err != nil {
		return fmt.Errorf("/n_order: %w", err)
	}
	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("/n_order: bad targetId: %w", err)
	}
	ids := make([]int64, 0, len(fields)-2)
	for _, f := range fields[2:] {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return fmt.Errorf("/n_order: bad id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return s.d.NodeOrder(action, targetID, ids)
}

func (s *Server) dispatchGroupNew(rest string) error {
	for _, triple := range strings.Fields(rest) {
		parts := strings.Split(triple, ":")
		if len(parts) != 3 {
			return fmt.Errorf("/g_new: bad triple %q, want id:addAction:targetId", triple)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("/g_new: bad id: %w", err)
		}
		action, err := parseAddAction(parts[1])
		if err != nil {
			return fmt.Errorf("/g_new: %w", err)
		}
		targetID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return fmt.Errorf("/g_new: bad targetId: %w", err)
		}
		if _, err := s.d.GroupNew(id, action, targetID); err != nil {
			core.LogWarn("osc: /g_new %s: %v", triple, err)
		}
	}
	return nil
}

func (s *Server) dispatchGroupSplice(rest string, action comp.AddAction) error {
	for _, pair := range strings.Fields(rest) {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			return fmt.Errorf("bad pair %q, want groupId:nodeId", pair)
		}
		groupID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad groupId: %w", err)
		}
		nodeID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad nodeId: %w", err)
		}
		if err := s.d.NodeOrder(action, groupID, []int64{nodeID}); err != nil {
			core.LogWarn("osc: group splice %s: %v", pair, err)
		}
	}
	return nil
}

func (s *Server) dispatchStageImage(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		return fmt.Errorf("/stage_image: expected id width height base64data, got %d fields", len(fields))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("/stage_image: bad id: %w", err)
	}
	width, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return fmt.Errorf("/stage_image: bad width: %w", err)
	}
	height, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return fmt.Errorf("/stage_image: bad height: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil {
		return fmt.Errorf("/stage_image: bad payload: %w", err)
	}
	s.d.StageImage(id, uint32(width), uint32(height), data, func(err error) {
		if err != nil {
			core.LogWarn("osc: /stage_image %d failed: %v", id, err)
		}
	})
	return nil
}

func (s *Server) dispatchQueryImage(rest string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return fmt.Errorf("/query_image: bad id: %w", err)
	}
	size, width, height, err := s.d.QueryImage(id)
	if err != nil {
		return fmt.Errorf("/query_image: %w", err)
	}
	core.LogInfo("osc: /query_image %d: size=%d width=%d height=%d", id, size, width, height)
	return nil
}

func (s *Server) dispatchSleepFor(rest string) error {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return fmt.Errorf("/sleep_for: bad seconds: %w", err)
	}
	s.d.SleepFor(seconds, func() { core.LogInfo("osc: /sleep_for %v complete", seconds) })
	return nil
}

func (s *Server) dispatchScreenShot(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) < 1 {
		return fmt.Errorf("/screen_shot: missing file_path")
	}
	filePath := fields[0]
	mimeType := ""
	if len(fields) > 1 {
		mimeType = fields[1]
	}
	s.d.ScreenShot(filePath, mimeType, func(err error) {
		if err != nil {
			core.LogWarn("osc: /screen_shot %s failed: %v", filePath, err)
		}
	})
	return nil
}

func (s *Server) dispatchSetClearColor(rest string) error {
	parts := strings.Split(strings.TrimSpace(rest), ",")
	if len(parts) != 3 {
		return fmt.Errorf("/set_clear_color: expected r,g,b, got %q", rest)
	}
	var c [3]float32
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return fmt.Errorf("/set_clear_color: bad component %q: %w", p, err)
		}
		c[i] = float32(v)
	}
	s.d.SetClearColor(c[0], c[1], c[2])
	return nil
}

func splitFirst(s string) (head, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx+1:], " \t")
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, tok := range splitList(s) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			core.LogWarn("osc: bad id %q", tok)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseBoolPairs(s string) (map[int64]bool, error) {
	pairs := make(map[int64]bool)
	for _, tok := range strings.Fields(s) {
		parts := strings.Split(tok, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad pair %q, want id=0|1", tok)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id in %q: %w", tok, err)
		}
		pairs[id] = parts[1] == "1" || strings.EqualFold(parts[1], "true")
	}
	return pairs, nil
}

func parseKeyValue(s string) (string, float32, error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("bad key=value pair %q", s)
	}
	v, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return "", 0, fmt.Errorf("bad value in %q: %w", s, err)
	}
	return parts[0], float32(v), nil
}

func parseAddAction(s string) (comp.AddAction, error) {
	switch s {
	case "head":
		return comp.AddToGroupHead, nil
	case "tail":
		return comp.AddToGroupTail, nil
	case "before":
		return comp.AddBeforeNode, nil
	case "after":
		return comp.AddAfterNode, nil
	case "replace":
		return comp.AddReplace, nil
	default:
		return 0, fmt.Errorf("unknown addAction %q", s)
	}
}
