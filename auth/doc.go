// Package auth issues and verifies the HMAC-signed bearer tokens that guard
// the voxd API.
//
// Tokens carry standard registered claims plus an optional scope list. The
// server middleware calls Service.Parse and stores the claims in the request
// context, where handlers read them back with FromContext.
//
//	svc, err := auth.NewService(cfg.Auth)
//	token, err := svc.Issue("recorder-app", "pipeline")
package auth
