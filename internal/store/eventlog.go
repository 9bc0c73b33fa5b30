package store

import (
	"fmt"

	"github.com/eigerco/tollbridge/internal/events"
)

// AppendEvent chains ev onto the persisted event log.
func (t *Txn) AppendEvent(ev events.Event) error {
	var head headDTO
	if _, err := t.decode(metaKey(metaEventHead), &head); err != nil {
		return err
	}
	payload, err := events.Encode(t.store.serializer, ev)
	if err != nil {
		return err
	}

	entry := events.Seal(head.Next, ev.Kind(), payload, head.Hash)
	if err := t.put(eventKey(entry.Seq), newEntryDTO(entry)); err != nil {
		return err
	}
	if err := t.put(metaKey(metaEventHead), headDTO{Next: entry.Seq + 1, Hash: entry.Hash}); err != nil {
		return err
	}
	t.emitted = append(t.emitted, ev)
	return nil
}

// Emit appends every event in order.
func (t *Txn) Emit(evs ...events.Event) error {
	for _, ev := range evs {
		if err := t.AppendEvent(ev); err != nil {
			return fmt.Errorf("append %s: %w", ev.Kind(), err)
		}
	}
	return nil
}

// Events returns up to limit committed log entries starting at sequence from.
func (s *Store) Events(from uint64, limit int) ([]events.Entry, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	iter, err := s.kv.NewIterator(eventKey(from), prefixEnd([]byte{prefixEvent}))
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	defer iter.Close()

	var out []events.Entry
	for (limit <= 0 || len(out) < limit) && iter.Next() {
		entry, err := s.decodeEntry(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// DecodeEvent restores the typed event stored in entry.
func (s *Store) DecodeEvent(entry events.Entry) (events.Event, error) {
	return events.Decode(s.serializer, entry.Kind, entry.Payload)
}

// VerifyEventLog walks the whole log and checks the hash chain, including
// that the stored head matches the last entry.
func (s *Store) VerifyEventLog() (uint64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	iter, err := s.kv.NewIterator([]byte{prefixEvent}, prefixEnd([]byte{prefixEvent}))
	if err != nil {
		return 0, fmt.Errorf("iterate events: %w", err)
	}
	defer iter.Close()

	var v events.Verifier
	for iter.Next() {
		entry, err := s.decodeEntry(iter.Value())
		if err != nil {
			return v.Count(), err
		}
		if err := v.Next(entry); err != nil {
			return v.Count(), err
		}
	}

	var head headDTO
	data, found, err := s.get(metaKey(metaEventHead))
	if err != nil {
		return v.Count(), err
	}
	if found {
		if err := s.serializer.Decode(data, &head); err != nil {
			return v.Count(), fmt.Errorf("decode event head: %w", err)
		}
	}
	if head.Next != v.Count() || head.Hash != v.Head() {
		return v.Count(), fmt.Errorf("%w: head does not match the last entry", events.ErrLogTampered)
	}
	return v.Count(), nil
}

func (s *Store) decodeEntry(data []byte, err error) (events.Entry, error) {
	if err != nil {
		return events.Entry{}, fmt.Errorf("read event: %w", err)
	}
	var dto entryDTO
	if err := s.serializer.Decode(data, &dto); err != nil {
		return events.Entry{}, fmt.Errorf("decode event: %w", err)
	}
	return dto.entry(), nil
}
