package models

// ContactRecord is a flat string-keyed view of an uploaded contact
// (first_name, company, job_title, industry, ...). The pipeline only reads
// fields; enrichment produces a new record instead of mutating in place.
type ContactRecord map[string]string

// Get returns the value for key, or empty string when absent.
func (c ContactRecord) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// Clone returns a shallow copy of the record.
func (c ContactRecord) Clone() ContactRecord {
	out := make(ContactRecord, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ContactsFile is the wire format of an uploaded contacts.json file.
type ContactsFile struct {
	Contacts []ContactRecord `json:"contacts"`
}
