package routes

import "encoding/json"

// Merge combines the user's routes with each build's routes into one
// ordered list:
//
//   - override and middleware routes are hoisted to the front,
//   - the remaining routes are grouped by the handle phase they follow,
//     with user routes ahead of build routes inside each phase,
//   - phases are emitted in canonical order, unknown phases after them,
//   - catch-all rules outside the error phase are collected once each and
//     placed last.
//
// Merge returns nil when no list contributes a route.
func Merge(user []Route, builds ...[]Route) []Route {
	m := &merger{
		phases: make(map[Handle][]Route),
		seen:   make(map[Handle]bool),
		caught: make(map[string]bool),
	}
	m.add(user)
	for _, b := range builds {
		m.add(b)
	}
	return m.result()
}

type merger struct {
	hoisted   []Route
	phases    map[Handle][]Route
	seen      map[Handle]bool
	extra     []Handle
	catchAlls []Route
	caught    map[string]bool
}

func (m *merger) add(list []Route) {
	var phase Handle
	for _, r := range list {
		if r.IsHandle() {
			phase = r.Handle
			m.markPhase(phase)
			continue
		}
		switch {
		case r.Override || r.MiddlewarePath != "":
			m.hoisted = append(m.hoisted, r)
		case r.IsCatchAll() && phase != HandleError:
			k := ruleKey(r)
			if !m.caught[k] {
				m.caught[k] = true
				m.catchAlls = append(m.catchAlls, r)
			}
		default:
			m.phases[phase] = append(m.phases[phase], r)
		}
	}
}

// ruleKey identifies a rule by every field, so catch-alls that differ only in
// status, headers or methods are all kept.
func ruleKey(r Route) string {
	data, _ := json.Marshal(r)
	return string(data)
}

func (m *merger) markPhase(h Handle) {
	if m.seen[h] {
		return
	}
	m.seen[h] = true
	for _, known := range phaseOrder {
		if known == h {
			return
		}
	}
	m.extra = append(m.extra, h)
}

func (m *merger) result() []Route {
	var out []Route
	out = append(out, m.hoisted...)
	out = append(out, m.phases[""]...)
	for _, h := range append(append([]Handle(nil), phaseOrder...), m.extra...) {
		if !m.seen[h] {
			continue
		}
		out = append(out, HandleRoute(h))
		out = append(out, m.phases[h]...)
	}
	out = append(out, m.catchAlls...)
	if len(out) == 0 {
		return nil
	}
	return out
}
