package common

// SyncSecretHeaderName is the HTTP header used to carry the shared sync
// secret on requests to the sync resource.
const SyncSecretHeaderName = "X-Sync-Secret"

// APIVersion is reported in every response envelope.
const APIVersion = "v1"
