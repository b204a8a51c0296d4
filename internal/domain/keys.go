package domain

// KeyPrefix namespaces all keys this service writes to the shared store.
const KeyPrefix = "lumenkb:"
