// Package certificate models a TLS certificate through its ACME lifecycle.
//
// A Certificate starts with an ordered domain list and a private key. The first
// domain is the canonical name used for storage keys and the CSR common name.
// Once the CA issues the certificate, SetFullchain stores the leaf and the
// issuing chain in one step:
//
//	cert, err := certificate.Generate([]string{"example.com", "www.example.com"})
//	if err != nil {
//		return err
//	}
//
//	csr, err := cert.CSR()
//	// ... submit csr and obtain the PEM full chain ...
//
//	if err := cert.SetFullchain(fullchain); err != nil {
//		return err
//	}
//
// Leaf, Chain and Fullchain return ErrNotReady until then.
//
// Renewals reuse the key and domain set through Clone.
package certificate
