package models

import (
	"fmt"
	"strings"
)

// Entity names the kind of record a queued mutation targets.
type Entity string

const (
	EntityAnimal      Entity = "animal"
	EntityTransaction Entity = "transaction"
	EntityTask        Entity = "task"
	EntityCamp        Entity = "camp"
	EntityInventory   Entity = "inventory"
	EntityEvent       Entity = "event"
)

// Entities lists every synchronised entity in replay-independent order.
var Entities = []Entity{EntityAnimal, EntityCamp, EntityTransaction, EntityTask, EntityInventory, EntityEvent}

// Collection is the remote and cache name of an entity collection.
func (e Entity) Collection() string {
	switch e {
	case EntityAnimal:
		return "animals"
	case EntityTransaction:
		return "transactions"
	case EntityTask:
		return "tasks"
	case EntityCamp:
		return "camps"
	case EntityInventory:
		return "inventory"
	case EntityEvent:
		return "events"
	default:
		return string(e)
	}
}

// ParseEntity accepts either the entity or its collection name.
func ParseEntity(value string) (Entity, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	for _, e := range Entities {
		if normalized == string(e) || normalized == e.Collection() {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q", value)
}

// ActionKind is the mutation applied to a remote document.
type ActionKind string

const (
	ActionAdd    ActionKind = "ADD"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
)

// DocumentPath is the remote address of a document owned by a user.
func DocumentPath(userID, collection, docID string) string {
	return fmt.Sprintf("users/%s/%s/%s", userID, collection, docID)
}

// CollectionPath is the remote address of a user's collection.
func CollectionPath(userID, collection string) string {
	return fmt.Sprintf("users/%s/%s", userID, collection)
}

// ParseDocumentPath splits a document path into its user, collection and document ids.
func ParseDocumentPath(path string) (userID, collection, docID string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "users" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", fmt.Errorf("invalid document path %q", path)
	}
	return parts[1], parts[2], parts[3], nil
}

// ParseCollectionPath splits a collection path into its user and collection.
func ParseCollectionPath(path string) (userID, collection string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != "users" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("invalid collection path %q", path)
	}
	return parts[1], parts[2], nil
}
