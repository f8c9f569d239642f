package normalize

import (
	"strings"
	"time"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

// isBundle reports whether raw is a FHIR Bundle (NPHIES-style submissions
// routed through Waseel and Tawuniya).
func isBundle(raw payload.Value) bool {
	rt, ok := raw.Get("resourceType")
	if !ok {
		return false
	}
	s, _ := payload.AsString(rt)
	return s == "Bundle"
}

// bundleIndex gives access to the resources of a Bundle by type and by
// reference ("Patient/123" or the entry fullUrl).
type bundleIndex struct {
	byType map[string][]payload.Value
	byRef  map[string]payload.Value
}

func indexBundle(r *reader) bundleIndex {
	idx := bundleIndex{byType: map[string][]payload.Value{}, byRef: map[string]payload.Value{}}
	for i, entry := range r.list("entry") {
		if !entry.IsObject() {
			r.invalid("bundle entry %d must be an object, got %s", i, entry.Kind())
			continue
		}
		res, ok := entry.Get("resource")
		if !ok {
			continue
		}
		if !res.IsObject() {
			r.invalid("bundle entry %d resource must be an object, got %s", i, res.Kind())
			continue
		}
		er := r.only(res)
		rt := er.text("resourceType")
		idx.byType[rt] = append(idx.byType[rt], res)
		if id := er.text("id"); id != "" {
			idx.byRef[rt+"/"+id] = res
		}
		if full := r.only(entry).text("fullUrl"); full != "" {
			idx.byRef[full] = res
		}
	}
	return idx
}

func (b bundleIndex) first(resourceType string) (payload.Value, bool) {
	if list := b.byType[resourceType]; len(list) > 0 {
		return list[0], true
	}
	return payload.Value{}, false
}

// resolve follows a Reference object. Absolute URLs are matched by their
// trailing "Type/id" when the full URL is not indexed.
func (b bundleIndex) resolve(ref payload.Value) (payload.Value, bool) {
	s, ok := ref.Get("reference")
	if !ok {
		return payload.Value{}, false
	}
	target, _ := payload.AsString(s)
	if res, ok := b.byRef[target]; ok {
		return res, true
	}
	parts := strings.Split(target, "/")
	if len(parts) >= 2 {
		if res, ok := b.byRef[parts[len(parts)-2]+"/"+parts[len(parts)-1]]; ok {
			return res, true
		}
	}
	return payload.Value{}, false
}

func (b bundleIndex) lookup(from payload.Value, field, fallbackType string) (payload.Value, bool) {
	if ref, ok := from.Get(field); ok {
		if res, ok := b.resolve(ref); ok {
			return res, true
		}
	}
	if fallbackType == "" {
		return payload.Value{}, false
	}
	return b.first(fallbackType)
}

// extractBundle maps a Claim-bearing FHIR Bundle onto the canonical claim.
func extractBundle(raw payload.Value, e env) (*claim.CanonicalClaim, error) {
	r := newReader(raw)
	idx := indexBundle(r)
	if err := r.err(); err != nil {
		return nil, err
	}
	claimRes, ok := idx.first("Claim")
	if !ok {
		return nil, newError(KindMissingRequiredField, "bundle contains no Claim resource")
	}

	cr := r.only(claimRes)
	patient, _ := idx.lookup(claimRes, "patient", "Patient")
	provider, _ := idx.lookup(claimRes, "provider", "")
	insurer, _ := idx.lookup(claimRes, "insurer", "")
	coverage := bundleCoverage(claimRes, idx)

	c := &claim.CanonicalClaim{
		ClaimID: firstNonEmpty(identifierValue(claimRes, ""), cr.text("id")),
		ClaimDetails: claim.ClaimDetails{
			ServiceDate:    bundleServiceDate(claimRes, e),
			TotalAmount:    r.only(objectAt(claimRes, "total")).amount("value"),
			Currency:       r.only(objectAt(claimRes, "total")).text("currency"),
			DiagnosisCodes: bundleDiagnoses(r, claimRes),
			ProcedureCodes: bundleItems(r, claimRes),
			EncounterType:  optional(codingCode(objectAt(claimRes, "subType"))),
		},
		Submission: claim.Submission{
			Method:    claim.MethodExternalNetwork,
			Timestamp: r.timestamp(r.only(claimRes).timestamp(e.today, "created"), "timestamp"),
			Status:    claim.StatusPending,
			BatchID:   r.optText("id"),
		},
	}

	if provider.IsObject() {
		pr := r.only(provider)
		c.Provider = claim.Provider{
			Name:          pr.text("name"),
			Code:          identifierValue(provider, ""),
			LicenseNumber: optional(identifierValue(provider, "license")),
			Contact:       optional(telecomValue(provider)),
			Branch:        r.only(firstItem(provider, "address")).text("city"),
		}
	} else {
		c.Provider.Name = r.only(objectAt(claimRes, "provider")).text("display")
	}

	if patient.IsObject() {
		pr := r.only(patient)
		c.Patient = claim.Patient{
			Name:        humanName(patient),
			NationalID:  optional(firstNonEmpty(identifierValue(patient, "iqama"), identifierValue(patient, "national"))),
			DateOfBirth: pr.optDate("birthDate"),
			Gender:      pr.gender("gender"),
		}
		c.Patient.MemberID = firstNonEmpty(identifierValue(patient, "member"), r.only(coverage).text("subscriberId"))
	} else {
		c.Patient.MemberID = r.only(coverage).text("subscriberId")
	}

	c.Payer = claim.Payer{
		Name:          firstNonEmpty(r.only(insurer).text("name"), payorDisplay(coverage), defaultPayerName(e)),
		PayerID:       optional(identifierValue(insurer, "")),
		InsuranceType: claim.ParseInsuranceType(codingCode(objectAt(coverage, "type"))),
		PolicyNumber:  optional(identifierValue(coverage, "")),
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return c, nil
}

func bundleCoverage(claimRes payload.Value, idx bundleIndex) payload.Value {
	if ins, ok := firstItem(claimRes, "insurance").Get("coverage"); ok {
		if res, ok := idx.resolve(ins); ok {
			return res
		}
	}
	if res, ok := idx.first("Coverage"); ok {
		return res
	}
	return payload.Object(nil)
}

func bundleServiceDate(claimRes payload.Value, e env) time.Time {
	r := newReader(claimRes)
	if start, ok := claimRes.Path("billablePeriod", "start"); ok {
		if d, ok := payload.AsDate(start); ok {
			return d
		}
	}
	if d := r.only(firstItem(claimRes, "item")).optDate("servicedDate"); d != nil {
		return *d
	}
	return r.date(e.today, "created")
}

func bundleDiagnoses(r *reader, claimRes payload.Value) []string {
	var out []string
	for _, d := range r.only(claimRes).list("diagnosis") {
		if code := codingCode(objectAt(d, "diagnosisCodeableConcept")); code != "" {
			out = append(out, code)
		}
	}
	return out
}

func bundleItems(r *reader, claimRes payload.Value) []claim.Procedure {
	var out []claim.Procedure
	for i, item := range r.only(claimRes).list("item") {
		if !item.IsObject() {
			r.invalid("claim item %d must be an object, got %s", i, item.Kind())
			continue
		}
		service := objectAt(item, "productOrService")
		desc := firstNonEmpty(codingDisplay(service), r.only(service).text("text"))
		p := claim.Procedure{
			Code:        codingCode(service),
			Description: optional(desc),
			Quantity:    r.only(objectAt(item, "quantity")).quantity("value"),
		}
		if price, ok := item.Get("unitPrice"); ok && price.IsObject() {
			p.UnitPrice = r.only(price).optAmount("value")
		}
		out = append(out, p)
	}
	return out
}

// identifierValue returns the first identifier whose system contains
// systemHint (any identifier when systemHint is empty).
func identifierValue(res payload.Value, systemHint string) string {
	ids, _ := res.Get("identifier")
	for _, id := range ids.Items() {
		sys, _ := id.Get("system")
		s, _ := payload.AsString(sys)
		if systemHint != "" && !strings.Contains(strings.ToLower(s), systemHint) {
			continue
		}
		if v, ok := id.Get("value"); ok {
			if out, _ := payload.AsString(v); out != "" {
				return out
			}
		}
	}
	return ""
}

func humanName(res payload.Value) string {
	name := firstItem(res, "name")
	if text, ok := name.Get("text"); ok {
		if s, _ := payload.AsString(text); s != "" {
			return s
		}
	}
	var parts []string
	if given, ok := name.Get("given"); ok {
		g, _ := payload.AsStrings(given)
		parts = append(parts, g...)
	}
	if family, ok := name.Get("family"); ok {
		if s, _ := payload.AsString(family); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func telecomValue(res payload.Value) string {
	v, _ := firstItem(res, "telecom").Get("value")
	s, _ := payload.AsString(v)
	return s
}

func payorDisplay(coverage payload.Value) string {
	v, _ := firstItem(coverage, "payor").Get("display")
	s, _ := payload.AsString(v)
	return s
}

func codingCode(concept payload.Value) string {
	v, _ := firstItem(concept, "coding").Get("code")
	s, _ := payload.AsString(v)
	return s
}

func codingDisplay(concept payload.Value) string {
	v, _ := firstItem(concept, "coding").Get("display")
	s, _ := payload.AsString(v)
	return s
}

func objectAt(v payload.Value, key string) payload.Value {
	if m, ok := v.Get(key); ok && m.IsObject() {
		return m
	}
	return payload.Object(nil)
}

func firstItem(v payload.Value, key string) payload.Value {
	list, _ := v.Get(key)
	if first, ok := list.Index(0); ok && first.IsObject() {
		return first
	}
	return payload.Object(nil)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
