// Package sm2 implements the SM2 elliptic-curve public-key cryptosystem over
// the 256-bit recommended curve: public-key encryption with C1 ‖ C3 ‖ C2
// ciphertexts, identity-bound digital signatures, and the primitives the
// key-exchange package builds on.
//
// Every operation runs against a *Domain. Initialize returns a shared default
// built on first use; NewDomain builds one with a chosen arithmetic backend,
// hash and logger.
//
//	dom, err := sm2.Initialize()
//	key, err := sm2.GenerateKey(dom, rand.Reader)
//	za, err := sm2.ComputeZ(&key.PublicKey, []byte(sm2.DefaultUID))
//	sig, err := sm2.Sign(rand.Reader, key, za, msg)
//	err = sm2.Verify(&key.PublicKey, za, msg, sig)
//
// Operations that take an explicit nonce (EncryptWithNonce, SignWithNonce)
// exist for known-answer testing and for callers that manage their own
// randomness. They surface degenerate nonces as errors instead of retrying.
package sm2
