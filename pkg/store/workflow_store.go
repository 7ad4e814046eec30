package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// WorkflowStore persists deployed workflow definitions, keyed by their
// workflow key.
type WorkflowStore struct {
	db *bolt.DB
}

func workflowKeyBytes(key model.Key) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(key))
	return buf[:]
}

// Put writes a workflow definition.
func (s *WorkflowStore) Put(wf *model.Workflow) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(wf)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketWorkflows).Put(workflowKeyBytes(wf.Key), data)
	})
}

// Get fetches a workflow definition by key.
func (s *WorkflowStore) Get(key model.Key) (*model.Workflow, error) {
	var wf model.Workflow
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketWorkflows).Get(workflowKeyBytes(key))
		if data == nil {
			return fmt.Errorf("workflow not found: %d", key)
		}
		return json.Unmarshal(data, &wf)
	})
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

// LatestByProcessId returns the highest-versioned workflow for a given
// BPMN process ID.
func (s *WorkflowStore) LatestByProcessId(processId string) (*model.Workflow, error) {
	var latest *model.Workflow
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWorkflows).ForEach(func(k, v []byte) error {
			var wf model.Workflow
			if err := json.Unmarshal(v, &wf); err != nil {
				return err
			}
			if wf.BpmnProcessId != processId {
				return nil
			}
			if latest == nil || wf.Version > latest.Version {
				latest = &wf
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("workflow not found: %s", processId)
	}
	return latest, nil
}
