package adapters

import (
	"testing"

	customerstransport "leadcrm_backend/internal/customers/transport"
	leadsservice "leadcrm_backend/internal/leads/service"
)

func TestMapOutcome(t *testing.T) {
	cases := []struct {
		in   string
		want leadsservice.ConversionOutcome
	}{
		{customerstransport.OutcomeCreated, leadsservice.ConversionCreated},
		{customerstransport.OutcomeAlreadyConverted, leadsservice.ConversionAlreadyConverted},
		{customerstransport.OutcomeIdentityExists, leadsservice.ConversionIdentityExists},
	}

	for _, tc := range cases {
		if got := mapOutcome(tc.in); got != tc.want {
			t.Fatalf("mapOutcome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
