package jobqueue

const (
	keyJob     = "job:"  // + job id, hash {data, version}
	keySent    = "sent:" // + job id, version of the last delivery
	keyLock    = "lock:" // + lock name
	keyDelayed = "jobs:delayed"
	keyActive  = "jobs:active"
	keyFailed  = "jobs:failed"
)

func (q *Queue) key(parts ...string) string {
	k := q.prefix
	for _, p := range parts {
		k += p
	}
	return k
}
