package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a stable UUID from key using go-hashid. Keys must be prefixed
// by their domain so different entities never collide.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// GlobalUUID is the document id shared by every locale of a global
// singleton such as the home page or the footer.
func GlobalUUID(kind string) uuid.UUID {
	return UUID("go-sitecms:global:" + strings.ToLower(strings.TrimSpace(kind)))
}
