package chain

// contractABI is the consumed surface of the bounty escrow contract.
// Submissions travel as a single composite evidence string; see
// domain.EncodeEvidence for the wire format.
const contractABI = `[
  {"type":"function","name":"createBounty","stateMutability":"payable",
   "inputs":[{"name":"_title","type":"string"},{"name":"_description","type":"string"},
             {"name":"_deadline","type":"uint256"},{"name":"_reviewPeriodSeconds","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"submitSolution","stateMutability":"nonpayable",
   "inputs":[{"name":"_bountyId","type":"uint256"},{"name":"_evidence","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"awardWinner","stateMutability":"nonpayable",
   "inputs":[{"name":"_bountyId","type":"uint256"},{"name":"_winner","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"cancelBounty","stateMutability":"nonpayable",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"getBountyCore","stateMutability":"view",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[{"name":"id","type":"uint256"},{"name":"creator","type":"address"},
              {"name":"reward","type":"uint256"},{"name":"deadline","type":"uint256"},
              {"name":"reviewEnd","type":"uint256"},{"name":"status","type":"uint8"}]},
  {"type":"function","name":"getBountyText","stateMutability":"view",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[{"name":"title","type":"string"},{"name":"description","type":"string"}]},
  {"type":"function","name":"getBountyWinner","stateMutability":"view",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[{"name":"winner","type":"address"},{"name":"paid","type":"bool"}]},
  {"type":"function","name":"getSubmissionCore","stateMutability":"view",
   "inputs":[{"name":"_bountyId","type":"uint256"},{"name":"_index","type":"uint256"}],
   "outputs":[{"name":"submitter","type":"address"},{"name":"evidence","type":"string"},
              {"name":"createdAt","type":"uint256"}]},
  {"type":"function","name":"getCounts","stateMutability":"view",
   "inputs":[{"name":"_bountyId","type":"uint256"}],
   "outputs":[{"name":"submissionCount","type":"uint256"}]},
  {"type":"function","name":"getUserReputation","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getTotalBounties","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getTreasuryBalance","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"hasSubmitted","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"paused","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"BountyCreated","anonymous":false,
   "inputs":[{"name":"bountyId","type":"uint256","indexed":true},
             {"name":"creator","type":"address","indexed":true},
             {"name":"reward","type":"uint256","indexed":false},
             {"name":"deadline","type":"uint256","indexed":false}]}
]`
