// Package audit records administrative and login events.
//
// Events are written through the Logger interface. LogrusLogger emits one structured
// entry per event tagged audit=true, so the trail can be filtered out of the normal
// application log:
//
//	auditor := audit.NewLogrusLogger(logger.Entry())
//	auditor.Record(ctx, audit.Event{
//		Type:        audit.EventTypeAdminUserDeactivate,
//		Status:      audit.EventStatusSuccess,
//		ActorEmail:  admin.Email,
//		TargetID:    acct.ID,
//		TargetEmail: acct.Email,
//	})
//
// MemoryLogger keeps events in memory for tests.
package audit
