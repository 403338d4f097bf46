package redis

const (
	// KeyRootID holds the persisted managed-root folder id.
	KeyRootID = "arbor:root"
	// KeyPrefixMetadata is the prefix for per-node metadata records.
	KeyPrefixMetadata = "arbor:meta:"
	// KeyAllMetadata is the set of all metadata record ids.
	KeyAllMetadata = "arbor:meta:all"
	// KeyImportJob holds the single persisted import job.
	KeyImportJob = "arbor:import:job"
	// KeyImportResult holds the outcome of the last finished batch import.
	KeyImportResult = "arbor:import:result"
	// KeyImportLock holds the advisory import lock record.
	KeyImportLock = "arbor:import:lock"
	// KeyPrefixAlarm is the prefix for persisted scheduler alarms.
	KeyPrefixAlarm = "arbor:alarm:"
	// KeyAllAlarms is the set of all alarm names.
	KeyAllAlarms = "arbor:alarms:all"
	// KeyPrefixTimestamp is the prefix for maintenance timestamps.
	KeyPrefixTimestamp = "arbor:ts:"
)

// MetadataKey returns the redis key for a node's metadata record.
func MetadataKey(id string) string {
	return KeyPrefixMetadata + id
}

// AlarmKey returns the redis key for a named alarm.
func AlarmKey(name string) string {
	return KeyPrefixAlarm + name
}

// TimestampKey returns the redis key for a named maintenance timestamp.
func TimestampKey(name string) string {
	return KeyPrefixTimestamp + name
}
