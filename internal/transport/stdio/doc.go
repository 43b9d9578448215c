// Package stdio speaks the line-delimited JSON protocol on a pair of
// streams, normally stdin and stdout.
//
// Inbound records, one per line:
//
//	{"type":"command","message":"open safari","session":"optional"}
//	{"type":"feedback","id":"feedback_1700000000000","action":"correct","correct_intent":"notes.create"}
//
// Feedback records also accept the desktop client's spelling
// ({"type":"feedback-response","feedbackId":...,"correctIntent":...}).
//
// Outbound records, one per line, flushed as written:
//
//	{"type":"response","data":{...}}
//	{"type":"request-feedback","recipient":"...","data":{"id":...,"type":"intent-confirmation",...}}
//	{"type":"feedback-received","data":{"id":...,"resolved":true,...}}
//	{"type":"error","data":{"id":...,"error":"..."}}
//
// Commands are handled one at a time in arrival order. Malformed lines are
// logged and skipped. Logs never go to the output stream.
package stdio
