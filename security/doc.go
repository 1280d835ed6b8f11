// Package security holds the TLS settings voxd uses on both sides of a
// connection: serving the API over HTTPS and dialing provider sidecars that
// sit behind a private CA.
//
//	server:
//	  tls:
//	    cert_file: /etc/voxd/tls/cert.pem
//	    key_file:  /etc/voxd/tls/key.pem
//
// Provider specs take the client half as options (ca_file, tls_skip_verify,
// tls_server_name), read by httpclient.TLSFromOptions.
package security
